// Package mediapool collects video asset URLs observed on the network while a
// thread page is open. X delivers tweet video out-of-band: the DOM references
// an asset id while the playable URLs (mp4 files and HLS playlists) arrive as
// ordinary resource responses, before, during, or after the referencing tweet
// is scanned. The pool is the meeting point between that response stream and
// the media resolver.
package mediapool

import (
	"regexp"
	"strings"
	"sync"
)

// VideoHost is the CDN domain all tweet video is served from.
const VideoHost = "video.twimg.com"

// assetIDRe matches the two known URL shapes carrying a numeric asset id:
// .../ext_tw_video/1234567890/... and .../amplify_video/1234567890/...
// (thumbnails use the same id under a _thumb suffix).
var assetIDRe = regexp.MustCompile(`(?:ext_tw_video|amplify_video)(?:_thumb)?/(\d+)`)

// AssetID extracts the numeric video asset identifier from a URL or attribute
// value, if present.
func AssetID(s string) (string, bool) {
	m := assetIDRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// AssetIDs extracts every distinct asset id appearing in s, in order of first
// occurrence. Used against raw markup, where one id can occur many times.
func AssetIDs(s string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range assetIDRe.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}
	return ids
}

// Pool is an append-only map from asset id to the URLs observed for it.
// The observer goroutine writes while the resolver reads; readers always get
// a snapshot copy, so no entry is ever mutated after being handed out.
type Pool struct {
	mu   sync.Mutex
	urls map[string][]string
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{urls: make(map[string][]string)}
}

// Add appends a URL under an asset id. Duplicates are retained: later
// responses for the same asset may be higher quality or differently encoded.
func (p *Pool) Add(assetID, url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls[assetID] = append(p.urls[assetID], url)
}

// Snapshot returns a copy of the URLs observed so far for an asset id.
func (p *Pool) Snapshot(assetID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	urls := p.urls[assetID]
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, len(urls))
	copy(out, urls)
	return out
}

// Len returns the number of distinct asset ids observed.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.urls)
}

// Observe filters one network response and records it if it is a playable
// video file or streaming manifest from the video CDN.
func (p *Pool) Observe(url string, status int, mimeType string) {
	if !strings.Contains(url, VideoHost) {
		return
	}
	// 206 is common: the player issues range requests for mp4 segments.
	if !(status >= 200 && status < 300) {
		return
	}
	if !playable(url, mimeType) {
		return
	}
	id, ok := AssetID(url)
	if !ok {
		return
	}
	p.Add(id, url)
}

func playable(url, mimeType string) bool {
	lower := strings.ToLower(url)
	if strings.Contains(lower, ".mp4") || strings.Contains(lower, ".m3u8") {
		return true
	}
	switch strings.ToLower(mimeType) {
	case "video/mp4", "application/x-mpegurl", "application/vnd.apple.mpegurl":
		return true
	}
	return false
}
