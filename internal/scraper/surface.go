package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Page is the capability surface the traversal loop drives. The loop never
// holds element handles: articles are snapshotted as outerHTML per pass, so a
// re-render between passes can at worst cost a re-scan, never a stale handle.
//
// The chromedp implementation below is the only real one; tests script their
// own.
type Page interface {
	// Navigate loads a thread URL and waits until at least one tweet article
	// is visible.
	Navigate(ctx context.Context, url string) error
	// Articles returns the outerHTML of every currently materialized tweet
	// article, in document order.
	Articles(ctx context.Context) ([]string, error)
	// StatusIDs returns the tweet ids currently referenced by permalinks in
	// the document. Cheaper than Articles; used by the scroll probe.
	StatusIDs(ctx context.Context) ([]string, error)
	// ExpandHidden activates every visible "show more" control and returns
	// how many were activated.
	ExpandHidden(ctx context.Context) (int, error)
	// ScrollBy scrolls the viewport vertically by the given pixel delta.
	ScrollBy(ctx context.Context, pixels int) error
	// Wait pauses for content to settle.
	Wait(ctx context.Context, d time.Duration) error
	// ResourceURLs returns the URLs in the page's resource timing buffer.
	ResourceURLs(ctx context.Context) ([]string, error)
}

const collectArticlesJS = `
(function() {
	var out = [];
	document.querySelectorAll('article[data-testid="tweet"]').forEach(function(el) {
		out.push(el.outerHTML);
	});
	return out;
})()`

const statusIDsJS = `
(function() {
	var ids = [];
	var seen = {};
	document.querySelectorAll('a[href*="/status/"]').forEach(function(a) {
		var m = a.getAttribute('href').match(/\/status\/(\d+)/);
		if (m && !seen[m[1]]) { seen[m[1]] = true; ids.push(m[1]); }
	});
	return ids;
})()`

// Clicking a control removes it from the DOM, so repeated calls only ever
// activate controls that appeared since the last call.
const expandHiddenJS = `
(function() {
	var n = 0;
	document.querySelectorAll('[data-testid="tweet-text-show-more-link"]').forEach(function(el) {
		el.click(); n++;
	});
	document.querySelectorAll('div[role="button"]').forEach(function(el) {
		var t = (el.textContent || '').trim();
		if (t === 'Show replies' || t === 'Show more replies' || t === 'Show') {
			el.click(); n++;
		}
	});
	return n;
})()`

const resourceURLsJS = `
(function() {
	return performance.getEntriesByType('resource').map(function(e) { return e.name; });
})()`

// chromePage drives a real browser tab via chromedp.
type chromePage struct {
	navTimeout time.Duration
}

func newChromePage(navTimeout time.Duration) *chromePage {
	return &chromePage{navTimeout: navTimeout}
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(WaitForTweets, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to load thread: %w", err)
	}
	return nil
}

func (p *chromePage) Articles(ctx context.Context) ([]string, error) {
	var htmls []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(collectArticlesJS, &htmls)); err != nil {
		return nil, fmt.Errorf("failed to collect articles: %w", err)
	}
	return htmls, nil
}

func (p *chromePage) StatusIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(statusIDsJS, &ids)); err != nil {
		return nil, fmt.Errorf("failed to collect status ids: %w", err)
	}
	return ids, nil
}

func (p *chromePage) ExpandHidden(ctx context.Context) (int, error) {
	var n int
	if err := chromedp.Run(ctx, chromedp.Evaluate(expandHiddenJS, &n)); err != nil {
		return 0, fmt.Errorf("failed to expand hidden content: %w", err)
	}
	return n, nil
}

func (p *chromePage) ScrollBy(ctx context.Context, pixels int) error {
	js := fmt.Sprintf(`window.scrollBy(0, %d)`, pixels)
	return chromedp.Run(ctx, chromedp.Evaluate(js, nil))
}

func (p *chromePage) Wait(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *chromePage) ResourceURLs(ctx context.Context) ([]string, error) {
	var urls []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(resourceURLsJS, &urls)); err != nil {
		return nil, fmt.Errorf("failed to read resource timing: %w", err)
	}
	return urls, nil
}
