// Package media correlates asset ids found in rendered tweet markup with the
// URLs the network observer has pooled for them, and turns those URLs into
// playable variant lists.
package media

import (
	"context"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/unspool/internal/mediapool"
	"github.com/ibeckermayer/unspool/internal/types"
)

// bitrateDivisor converts a file's byte size into a rough bitrate estimate
// when no manifest declares one. Best-effort only.
const bitrateDivisor = 128_000

var (
	resolutionRe = regexp.MustCompile(`/(\d+x\d+)/`)
	// Audio-only renditions share the video asset id but are not playable on
	// their own.
	audioSegmentRe = regexp.MustCompile(`/mp4a/|/audio/`)
)

// Resolver attaches pooled video URLs to tweets. One resolver is created per
// thread session: the assigned set guarantees that a physical asset (e.g. a
// video shared by a quote tweet) is attached to at most one tweet.
type Resolver struct {
	pool      *mediapool.Pool
	manifests *http.Client
	probes    *http.Client
	assigned  map[string]bool
	log       zerolog.Logger
}

// NewResolver creates a resolver reading from the given pool.
// manifestTimeout bounds each playlist fetch, probeTimeout each metadata HEAD
// request; probes are cheaper and get the tighter bound.
func NewResolver(pool *mediapool.Pool, manifestTimeout, probeTimeout time.Duration, log zerolog.Logger) *Resolver {
	return &Resolver{
		pool:      pool,
		manifests: &http.Client{Timeout: manifestTimeout},
		probes:    &http.Client{Timeout: probeTimeout},
		assigned:  make(map[string]bool),
		log:       log.With().Str("component", "media").Logger(),
	}
}

// Resolve reconstructs the video attached to one tweet article, or nil when
// nothing could be resolved. timing supplies the page's buffered
// resource-timing URLs and is only consulted as the last fallback; it may be
// nil.
func (r *Resolver) Resolve(ctx context.Context, art *goquery.Selection, timing func(context.Context) []string) *types.Video {
	candidates := r.candidates(art)

	var variants []types.MediaVariant
	suppressed := 0
	for _, id := range candidates {
		if r.assigned[id] {
			suppressed++
			continue
		}
		vs := r.resolveAsset(ctx, id)
		if len(vs) > 0 {
			r.assigned[id] = true
			variants = append(variants, vs...)
		}
	}

	// Nothing pooled under any candidate id: scan the page's resource timing
	// buffer for direct video files. When every candidate was skipped because
	// its asset already belongs to an earlier tweet, this tweet stays empty:
	// the timing buffer would only hand back the same files.
	allTaken := len(candidates) > 0 && suppressed == len(candidates)
	if len(variants) == 0 && !allTaken && timing != nil {
		variants = r.resolveFromTiming(ctx, timing(ctx))
	}

	if len(variants) == 0 {
		return nil
	}

	return &types.Video{
		Thumbnail: posterURL(art),
		Variants:  variants,
	}
}

// candidates derives asset ids from the article's rendered markup. A live
// video element's poster id comes first: it names the asset actually mounted
// in this tweet, while background-image styles can leak ids from quoted
// content.
func (r *Resolver) candidates(art *goquery.Selection) []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	art.Find("video[poster]").Each(func(_ int, s *goquery.Selection) {
		if poster, ok := s.Attr("poster"); ok {
			if id, ok := mediapool.AssetID(poster); ok {
				add(id)
			}
		}
	})

	if html, err := goquery.OuterHtml(art); err == nil {
		for _, id := range mediapool.AssetIDs(html) {
			add(id)
		}
	}

	return ids
}

// resolveAsset turns one asset id's pooled URLs into variants: manifests are
// fetched and parsed, and when they yield nothing, direct files are probed.
func (r *Resolver) resolveAsset(ctx context.Context, id string) []types.MediaVariant {
	urls := r.pool.Snapshot(id)
	if len(urls) == 0 {
		return nil
	}

	var manifests, direct []string
	for _, u := range urls {
		switch {
		case strings.Contains(u, ".m3u8"):
			manifests = append(manifests, u)
		case audioSegmentRe.MatchString(u):
			// skip audio-only renditions
		default:
			direct = append(direct, u)
		}
	}

	variants := r.fetchManifests(ctx, manifests)
	if len(variants) > 0 {
		return variants
	}

	for _, u := range direct {
		variants = append(variants, r.probeVariant(ctx, u))
	}
	return variants
}

// fetchManifests fetches all manifest URLs concurrently. One manifest failing
// does not abort the others.
func (r *Resolver) fetchManifests(ctx context.Context, urls []string) []types.MediaVariant {
	if len(urls) == 0 {
		return nil
	}

	var mu sync.Mutex
	var variants []types.MediaVariant

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		g.Go(func() error {
			vs, err := fetchManifestVariants(gctx, r.manifests, u)
			if err != nil {
				r.log.Debug().Err(err).Str("url", u).Msg("manifest fetch failed")
				return nil // isolated failure
			}
			mu.Lock()
			variants = append(variants, vs...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return dedupeVariants(variants)
}

// probeVariant builds a variant for a direct file URL: a HEAD request gives
// the byte size for the bitrate estimate, and the resolution is read from the
// WxH token in the path when present.
func (r *Resolver) probeVariant(ctx context.Context, fileURL string) types.MediaVariant {
	v := types.MediaVariant{URL: fileURL}
	if m := resolutionRe.FindStringSubmatch(fileURL); m != nil {
		v.Resolution = m[1]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fileURL, nil)
	if err != nil {
		return v
	}
	resp, err := r.probes.Do(req)
	if err != nil {
		r.log.Debug().Err(err).Str("url", fileURL).Msg("metadata probe failed")
		return v
	}
	resp.Body.Close()

	if resp.ContentLength > 0 {
		v.Bitrate = int(math.Round(float64(resp.ContentLength)/bitrateDivisor)) * 1000
	}
	return v
}

// resolveFromTiming treats any playable video-host URL from the page's
// resource timing buffer as a direct file. Assets already attached to an
// earlier tweet are skipped, and assets used here are claimed exactly like
// pooled ones, so the one-tweet-per-asset rule holds on this path too.
func (r *Resolver) resolveFromTiming(ctx context.Context, urls []string) []types.MediaVariant {
	var variants []types.MediaVariant
	used := make(map[string]bool)
	for _, u := range urls {
		if !strings.Contains(u, mediapool.VideoHost) {
			continue
		}
		if !strings.Contains(u, ".mp4") || audioSegmentRe.MatchString(u) {
			continue
		}
		if id, ok := mediapool.AssetID(u); ok {
			if r.assigned[id] {
				continue
			}
			used[id] = true
		}
		variants = append(variants, r.probeVariant(ctx, u))
	}
	for id := range used {
		r.assigned[id] = true
	}
	return dedupeVariants(variants)
}

func posterURL(art *goquery.Selection) string {
	if poster, ok := art.Find("video[poster]").First().Attr("poster"); ok {
		return poster
	}
	return ""
}

func dedupeVariants(vs []types.MediaVariant) []types.MediaVariant {
	if len(vs) < 2 {
		return vs
	}
	seen := make(map[string]bool, len(vs))
	out := vs[:0]
	for _, v := range vs {
		if seen[v.URL] {
			continue
		}
		seen[v.URL] = true
		out = append(out, v)
	}
	return out
}
