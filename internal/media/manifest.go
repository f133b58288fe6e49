package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ibeckermayer/unspool/internal/types"
)

// maxManifestBytes bounds how much playlist text we are willing to read.
const maxManifestBytes = 1 << 20

// fetchManifestVariants downloads a master playlist and returns one variant
// per stream entry, with URIs resolved against the manifest URL.
func fetchManifestVariants(ctx context.Context, client *http.Client, manifestURL string) ([]types.MediaVariant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest fetch: unexpected status %d", resp.StatusCode)
	}

	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, err
	}

	return parseMaster(base, io.LimitReader(resp.Body, maxManifestBytes))
}

// parseMaster reads an HLS master playlist and extracts the declared
// bandwidth, resolution, and URI of each #EXT-X-STREAM-INF entry. Entries
// with no following URI line are skipped.
func parseMaster(base *url.URL, r io.Reader) ([]types.MediaVariant, error) {
	var variants []types.MediaVariant
	var pending *types.MediaVariant

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			attrs := parseAttrs(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:"))
			v := types.MediaVariant{Resolution: attrs["RESOLUTION"]}
			if bw, err := strconv.Atoi(attrs["BANDWIDTH"]); err == nil {
				v.Bitrate = bw
			}
			pending = &v
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		// A non-comment line following a stream entry is its URI.
		if pending != nil {
			if ref, err := url.Parse(line); err == nil {
				pending.URL = base.ResolveReference(ref).String()
				variants = append(variants, *pending)
			}
			pending = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return variants, nil
}

// parseAttrs splits an HLS attribute list ("A=1,B="x,y"") on commas outside
// double quotes.
func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	var field strings.Builder
	inQuotes := false

	flush := func() {
		pair := field.String()
		field.Reset()
		if k, v, ok := strings.Cut(pair, "="); ok {
			attrs[k] = strings.Trim(v, `"`)
		}
	}

	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			field.WriteRune(r)
		case r == ',' && !inQuotes:
			flush()
		default:
			field.WriteRune(r)
		}
	}
	flush()

	return attrs
}
