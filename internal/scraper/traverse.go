package scraper

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/unspool/internal/types"
)

// videoResolver is what the traversal needs from the media layer. The real
// implementation is media.Resolver; tests substitute their own.
type videoResolver interface {
	Resolve(ctx context.Context, art *goquery.Selection, timing func(context.Context) []string) *types.Video
}

// timingURLs adapts Page.ResourceURLs to the error-free callback shape the
// media resolver takes; the buffer is a best-effort fallback, so a read
// failure is logged and yields no URLs.
func (s *Scraper) timingURLs(page Page) func(context.Context) []string {
	return func(ctx context.Context) []string {
		urls, err := page.ResourceURLs(ctx)
		if err != nil {
			s.log.Debug().Err(err).Msg("resource timing read failed")
			return nil
		}
		return urls
	}
}

// Scroll deltas. The forced scroll recovers from a pass where nothing was
// materialized at all; the probe steps nudge the virtualized list forward.
const (
	forcedScrollPx = 10000
	probeScrollPx  = 800
	settleScrollPx = 2000
)

// collect runs the traversal state machine until the stall limit or the
// author tail ends it, returning admitted tweets in traversal order.
func (s *Scraper) collect(ctx context.Context, page Page, sess *session, res videoResolver) ([]types.Tweet, error) {
	var tweets []types.Tweet

	for sess.stallCount < s.stallLimit {
		if err := ctx.Err(); err != nil {
			return tweets, err
		}

		htmls, err := page.Articles(ctx)
		if err != nil {
			return nil, err
		}

		// Nothing materialized: force a large scroll and count a stall.
		if len(htmls) == 0 {
			sess.stallCount++
			if err := page.ScrollBy(ctx, forcedScrollPx); err != nil {
				return nil, err
			}
			if err := page.Wait(ctx, s.scrollPause); err != nil {
				return tweets, err
			}
			continue
		}

		// EXPANDING: activate collapsed-content controls, then re-scan.
		if sess.expandRounds < s.expandRounds {
			n, err := page.ExpandHidden(ctx)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				sess.expandRounds++
				sess.stallCount = 0
				s.log.Debug().Int("controls", n).Msg("expanded collapsed content")
				if err := page.Wait(ctx, s.scrollPause); err != nil {
					return tweets, err
				}
				continue
			}
		}

		// DETERMINE_AUTHOR: the first article's permalink is authoritative.
		if !sess.resolved {
			if err := s.resolveAuthor(sess, htmls[0]); err != nil {
				return nil, err
			}
		}

		added, tailEnd := s.scanPass(ctx, page, sess, res, htmls, &tweets)
		if tailEnd {
			s.log.Debug().Int("tweets", len(tweets)).Msg("author tail reached, scan complete")
			break
		}

		if added > 0 {
			sess.stallCount = 0
			if err := page.ScrollBy(ctx, settleScrollPx); err != nil {
				return nil, err
			}
			if err := page.Wait(ctx, s.scrollPause); err != nil {
				return tweets, err
			}
			continue
		}

		sess.stallCount++
		if sess.stallCount >= s.stallLimit {
			break
		}
		// SCROLLING: bounded incremental probe for any unseen id. Failing to
		// surface one counts as a further stall.
		if found, err := s.probeForUnseen(ctx, page, sess); err != nil {
			return tweets, err
		} else if !found {
			sess.stallCount++
		}
	}

	return tweets, nil
}

// scanPass walks one snapshot of materialized articles in document order,
// admitting unseen authored tweets. It reports how many were admitted and
// whether the author's contiguous run ended.
func (s *Scraper) scanPass(ctx context.Context, page Page, sess *session, res videoResolver, htmls []string, tweets *[]types.Tweet) (added int, tailEnd bool) {
	for _, html := range htmls {
		art, err := parseArticle(html)
		if err != nil {
			continue
		}

		id, handle, ok := permalink(art)
		if !ok {
			continue
		}
		if sess.seen[id] {
			continue
		}

		if handle != sess.author.Handle {
			sess.tailCount++
			// Replies by other accounts after the author's run are the end
			// of the thread, not content to collect.
			if len(*tweets) > 0 && sess.tailCount >= 1 {
				return added, true
			}
			continue
		}
		sess.tailCount = 0

		tweet := parseTweet(art, id, handle)
		if video := res.Resolve(ctx, art, s.timingURLs(page)); video != nil {
			tweet.Media.Video = video
		}

		sess.seen[id] = true
		*tweets = append(*tweets, tweet)
		added++
	}
	return added, false
}

// applyRootPolicy drops the thread's first tweet when the run is configured
// to exclude the root.
func applyRootPolicy(tweets []types.Tweet, includeRoot bool) []types.Tweet {
	if !includeRoot && len(tweets) > 0 {
		return tweets[1:]
	}
	return tweets
}

// resolveAuthor fixes the session author from the first materialized article.
// Failure here is fatal for this thread only.
func (s *Scraper) resolveAuthor(sess *session, firstHTML string) error {
	art, err := parseArticle(firstHTML)
	if err != nil {
		return fmt.Errorf("malformed first article: %w", err)
	}
	_, handle, ok := permalink(art)
	if !ok {
		return fmt.Errorf("could not resolve a permalink on the first tweet - layout change?")
	}
	sess.author = authorFrom(art, handle)
	sess.resolved = true
	s.log.Debug().Str("author", handle).Msg("thread author resolved")
	return nil
}

// probeForUnseen performs up to scrollSteps small scrolls, checking after
// each whether a permalink id outside seenIDs has become visible.
func (s *Scraper) probeForUnseen(ctx context.Context, page Page, sess *session) (bool, error) {
	for i := 0; i < s.scrollSteps; i++ {
		if err := page.ScrollBy(ctx, probeScrollPx); err != nil {
			return false, err
		}
		if err := page.Wait(ctx, s.scrollPause); err != nil {
			return false, err
		}
		ids, err := page.StatusIDs(ctx)
		if err != nil {
			return false, err
		}
		for _, id := range ids {
			if !sess.seen[id] {
				return true, nil
			}
		}
	}
	return false, nil
}

// hydrate retries media resolution for tweets that came out of the live pass
// with no video. Asset URLs often arrive on the network only after the
// referencing article was scanned; by now the pool is as complete as it will
// get. Tweets whose articles were evicted by virtualization keep empty media.
func (s *Scraper) hydrate(ctx context.Context, page Page, sess *session, res videoResolver, tweets []types.Tweet) {
	var missing map[string]int
	for i := range tweets {
		if tweets[i].HasVideo() {
			continue
		}
		if missing == nil {
			missing = make(map[string]int)
		}
		missing[tweets[i].ID] = i
	}
	if len(missing) == 0 {
		return
	}

	htmls, err := page.Articles(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("hydration pass skipped")
		return
	}

	rehydrated := 0
	for _, html := range htmls {
		art, err := parseArticle(html)
		if err != nil {
			continue
		}
		id, _, ok := permalink(art)
		if !ok {
			continue
		}
		idx, want := missing[id]
		if !want {
			continue
		}
		if video := res.Resolve(ctx, art, s.timingURLs(page)); video != nil {
			tweets[idx].Media.Video = video
			rehydrated++
		}
	}
	if rehydrated > 0 {
		s.log.Debug().Int("tweets", rehydrated).Msg("second-pass media hydration")
	}
}
