package media

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/unspool/internal/mediapool"
)

func videoArticle(t *testing.T, assetID string) *goquery.Selection {
	t.Helper()
	html := fmt.Sprintf(`
<article data-testid="tweet">
  <div data-testid="videoPlayer">
    <video poster="https://pbs.twimg.com/ext_tw_video_thumb/%s/pu/img/poster.jpg"></video>
  </div>
</article>`, assetID)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Selection
}

func plainArticle(t *testing.T) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<article data-testid="tweet"><span>no media</span></article>`))
	require.NoError(t, err)
	return doc.Selection
}

func newTestResolver(pool *mediapool.Pool) *Resolver {
	return NewResolver(pool, 5*time.Second, 5*time.Second, zerolog.Nop())
}

func TestResolveFromManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=832000,RESOLUTION=480x852\n"+
			"/ext_tw_video/77/pu/pl/480x852/mid.m3u8\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=2176000,RESOLUTION=720x1280\n"+
			"/ext_tw_video/77/pu/pl/720x1280/high.m3u8\n")
	}))
	defer srv.Close()

	pool := mediapool.New()
	pool.Add("77", srv.URL+"/ext_tw_video/77/pu/pl/master.m3u8")

	r := newTestResolver(pool)
	video := r.Resolve(context.Background(), videoArticle(t, "77"), nil)

	require.NotNil(t, video)
	assert.Equal(t, "https://pbs.twimg.com/ext_tw_video_thumb/77/pu/img/poster.jpg", video.Thumbnail)
	require.Len(t, video.Variants, 2)
	assert.Equal(t, 832000, video.Variants[0].Bitrate)
	assert.Equal(t, "480x852", video.Variants[0].Resolution)
	assert.Contains(t, video.Variants[1].URL, "/720x1280/high.m3u8")
}

func TestResolveFallsBackToDirectFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, ".m3u8") {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		// HEAD probe for the direct file
		w.Header().Set("Content-Length", "1280000")
	}))
	defer srv.Close()

	pool := mediapool.New()
	pool.Add("5", srv.URL+"/ext_tw_video/5/pu/pl/master.m3u8")
	pool.Add("5", srv.URL+"/ext_tw_video/5/pu/vid/640x360/clip.mp4")
	pool.Add("5", srv.URL+"/ext_tw_video/5/pu/vid/mp4a/128000/audio.mp4")

	r := newTestResolver(pool)
	video := r.Resolve(context.Background(), videoArticle(t, "5"), nil)

	require.NotNil(t, video)
	require.Len(t, video.Variants, 1, "audio-only segment must be excluded")
	v := video.Variants[0]
	assert.Contains(t, v.URL, "640x360/clip.mp4")
	assert.Equal(t, "640x360", v.Resolution)
	assert.Equal(t, 10000, v.Bitrate) // 1280000 / 128000 = 10, in thousands
}

func TestResolveAssignmentIsExclusive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=832000,RESOLUTION=480x852\nmid.m3u8\n")
	}))
	defer srv.Close()

	pool := mediapool.New()
	pool.Add("9", srv.URL+"/ext_tw_video/9/pu/pl/master.m3u8")

	r := newTestResolver(pool)

	first := r.Resolve(context.Background(), videoArticle(t, "9"), nil)
	require.NotNil(t, first)
	require.NotEmpty(t, first.Variants)

	// same asset rendered in a second tweet (e.g. quoted video)
	second := r.Resolve(context.Background(), videoArticle(t, "9"), nil)
	assert.Nil(t, second)
}

func TestResolveAssignedAssetNotRecoveredFromTiming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, ".m3u8") {
			fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=832000,RESOLUTION=480x852\nmid.m3u8\n")
			return
		}
		w.Header().Set("Content-Length", "1280000")
	}))
	defer srv.Close()

	pool := mediapool.New()
	pool.Add("9", srv.URL+"/ext_tw_video/9/pu/pl/master.m3u8")

	timing := func(ctx context.Context) []string {
		return []string{srv.URL + "/video.twimg.com/ext_tw_video/9/pu/vid/720x1280/clip.mp4"}
	}

	r := newTestResolver(pool)
	require.NotNil(t, r.Resolve(context.Background(), videoArticle(t, "9"), timing))

	// The timing buffer still names the asset's files, but the asset already
	// belongs to the first tweet.
	second := r.Resolve(context.Background(), videoArticle(t, "9"), timing)
	assert.Nil(t, second)
}

func TestResolveTimingFallbackClaimsAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1280000")
	}))
	defer srv.Close()

	timing := func(ctx context.Context) []string {
		return []string{srv.URL + "/video.twimg.com/ext_tw_video/3/pu/vid/720x1280/clip.mp4"}
	}

	r := newTestResolver(mediapool.New())

	first := r.Resolve(context.Background(), plainArticle(t), timing)
	require.NotNil(t, first)
	require.Len(t, first.Variants, 1)

	second := r.Resolve(context.Background(), plainArticle(t), timing)
	assert.Nil(t, second)
}

func TestResolveNothingPooled(t *testing.T) {
	r := newTestResolver(mediapool.New())
	assert.Nil(t, r.Resolve(context.Background(), videoArticle(t, "404"), nil))
}

func TestResolveTimingFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2560000")
	}))
	defer srv.Close()

	// the article exposes no asset id at all
	art := plainArticle(t)

	timingURL := srv.URL + "/video.twimg.com/ext_tw_video/3/pu/vid/720x1280/clip.mp4"
	timing := func(ctx context.Context) []string {
		return []string{
			"https://abs.twimg.com/some/script.js",
			timingURL,
			srv.URL + "/video.twimg.com/ext_tw_video/3/pu/vid/mp4a/64000/audio.mp4",
		}
	}

	r := newTestResolver(mediapool.New())
	video := r.Resolve(context.Background(), art, timing)

	require.NotNil(t, video)
	require.Len(t, video.Variants, 1)
	assert.Equal(t, timingURL, video.Variants[0].URL)
	assert.Equal(t, "720x1280", video.Variants[0].Resolution)
	assert.Equal(t, 20000, video.Variants[0].Bitrate)
	assert.Empty(t, video.Thumbnail)
}

func TestResolveManifestTimeoutIsIsolated(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=256000,RESOLUTION=320x568\nlow.m3u8\n")
	}))
	defer fast.Close()

	pool := mediapool.New()
	pool.Add("11", slow.URL+"/ext_tw_video/11/pu/pl/master.m3u8")
	pool.Add("11", fast.URL+"/ext_tw_video/11/pu/pl/master.m3u8")

	r := NewResolver(pool, 200*time.Millisecond, time.Second, zerolog.Nop())
	video := r.Resolve(context.Background(), videoArticle(t, "11"), nil)

	require.NotNil(t, video)
	require.Len(t, video.Variants, 1)
	assert.Equal(t, 256000, video.Variants[0].Bitrate)
}

func TestProbeTimeoutIsIndependent(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	pool := mediapool.New()
	pool.Add("13", slow.URL+"/ext_tw_video/13/pu/vid/640x360/clip.mp4")

	// A generous manifest timeout must not carry over to metadata probes.
	r := NewResolver(pool, time.Minute, 200*time.Millisecond, zerolog.Nop())

	start := time.Now()
	video := r.Resolve(context.Background(), videoArticle(t, "13"), nil)
	require.Less(t, time.Since(start), 5*time.Second)

	// Probe failure degrades the variant, it does not drop it.
	require.NotNil(t, video)
	require.Len(t, video.Variants, 1)
	assert.Equal(t, "640x360", video.Variants[0].Resolution)
	assert.Zero(t, video.Variants[0].Bitrate)
}
