// Package scraper extracts author-scoped thread records from X.com.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/unspool/internal/browser"
	"github.com/ibeckermayer/unspool/internal/config"
	"github.com/ibeckermayer/unspool/internal/media"
	"github.com/ibeckermayer/unspool/internal/mediapool"
	"github.com/ibeckermayer/unspool/internal/types"
)

// threadTimeout bounds one full thread scrape, traversal and hydration
// included.
const threadTimeout = 5 * time.Minute

// Scraper turns thread URLs into Thread records.
type Scraper struct {
	headless    bool
	proxy       string
	includeRoot bool

	stallLimit   int
	scrollSteps  int
	expandRounds int
	scrollPause  time.Duration
	navTimeout   time.Duration

	manifestTimeout time.Duration
	probeTimeout    time.Duration

	log zerolog.Logger
}

// New creates a scraper from config.
func New(cfg *config.Config, log zerolog.Logger) *Scraper {
	return &Scraper{
		headless:     cfg.Scraping.Headless,
		proxy:        cfg.Scraping.Proxy,
		includeRoot:  cfg.Scraping.IncludeRoot,
		stallLimit:   cfg.Scraping.StallLimit,
		scrollSteps:  cfg.Scraping.ScrollSteps,
		expandRounds: cfg.Scraping.ExpandRounds,
		scrollPause:  time.Duration(cfg.Scraping.ScrollPauseMs) * time.Millisecond,
		navTimeout:   time.Duration(cfg.Scraping.NavTimeoutSec) * time.Second,

		manifestTimeout: time.Duration(cfg.Media.ManifestTimeoutSec) * time.Second,
		probeTimeout:    time.Duration(cfg.Media.ProbeTimeoutSec) * time.Second,

		log: log.With().Str("component", "scraper").Logger(),
	}
}

// ScrapeThread opens one thread URL in a fresh browser context and returns
// its record. Errors are scoped to this thread only.
func (s *Scraper) ScrapeThread(ctx context.Context, cookies []*network.Cookie, threadURL string) (*types.Thread, error) {
	opts := browser.Options(s.headless, s.proxy)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, threadTimeout)
	defer timeoutCancel()

	// The response observer must be listening before navigation: video URLs
	// start arriving with the first render.
	pool := mediapool.New()
	mediapool.Attach(browserCtx, pool)
	if err := chromedp.Run(browserCtx, mediapool.EnableAction()); err != nil {
		return nil, fmt.Errorf("failed to enable network events: %w", err)
	}

	if err := s.injectCookies(browserCtx, cookies); err != nil {
		return nil, fmt.Errorf("failed to inject cookies: %w", err)
	}

	page := newChromePage(s.navTimeout)
	if err := page.Navigate(browserCtx, threadURL); err != nil {
		return nil, err
	}

	sess := newSession(threadURL)
	resolver := media.NewResolver(pool, s.manifestTimeout, s.probeTimeout, s.log)

	tweets, err := s.collect(browserCtx, page, sess, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to extract thread: %w", err)
	}
	if !sess.resolved {
		return nil, fmt.Errorf("no tweets ever materialized at %s", threadURL)
	}

	s.hydrate(browserCtx, page, sess, resolver, tweets)

	tweets = applyRootPolicy(tweets, s.includeRoot)
	if tweets == nil {
		tweets = []types.Tweet{}
	}

	return &types.Thread{
		URL:       threadURL,
		Author:    sess.author,
		Count:     len(tweets),
		Tweets:    tweets,
		ScrapedAt: time.Now(),
	}, nil
}

// ScrapeAll processes a batch of thread URLs. A failure on one URL is logged
// and skipped; the batch always attempts every URL.
func (s *Scraper) ScrapeAll(ctx context.Context, cookies []*network.Cookie, urls []string) []*types.Thread {
	threads := make([]*types.Thread, 0, len(urls))
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			s.log.Warn().Err(err).Msg("batch interrupted")
			break
		}
		s.log.Info().Int("n", i+1).Int("of", len(urls)).Str("url", u).Msg("scraping thread")
		thread, err := s.ScrapeThread(ctx, cookies, u)
		if err != nil {
			s.log.Error().Err(err).Str("url", u).Msg("thread failed, continuing")
			continue
		}
		s.log.Info().Str("url", u).Int("tweets", thread.Count).Msg("thread scraped")
		threads = append(threads, thread)
	}
	return threads
}

// injectCookies sets cookies in the browser context
func (s *Scraper) injectCookies(ctx context.Context, cookies []*network.Cookie) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)

				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}
