package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/unspool/internal/types"
)

var (
	permalinkRe = regexp.MustCompile(`^/?([A-Za-z0-9_]+)/status/(\d+)`)
	numTokenRe  = regexp.MustCompile(`([\d][\d.,]*[KkMm]?)`)
)

// parseArticle builds a goquery selection from one article's outerHTML
// snapshot.
func parseArticle(html string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	art := doc.Find(TweetArticle).First()
	if art.Length() == 0 {
		// Fragment parsers sometimes strip the article wrapper; fall back to
		// the whole document.
		art = doc.Selection
	}
	return art, nil
}

// permalink resolves the article's canonical status link into the author
// handle and tweet id. The link wrapping the timestamp is the tweet's own
// permalink; other status links may belong to quoted tweets.
func permalink(art *goquery.Selection) (id, handle string, ok bool) {
	var href string
	art.Find(TweetLink).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find(TweetTimestamp).Length() > 0 {
			href, _ = s.Attr("href")
			return false
		}
		return true
	})
	if href == "" {
		href, _ = art.Find(TweetLink).First().Attr("href")
	}

	href = strings.TrimPrefix(href, "https://x.com")
	href = strings.TrimPrefix(href, "https://twitter.com")
	m := permalinkRe.FindStringSubmatch(href)
	if m == nil {
		return "", "", false
	}
	return m[2], m[1], true
}

// authorFrom reads the display name and avatar from an article known to be
// the thread root. The handle comes from the permalink, not from here.
func authorFrom(art *goquery.Selection, handle string) types.Author {
	author := types.Author{Handle: handle}
	author.AvatarURL, _ = art.Find(AvatarImage).First().Attr("src")

	art.Find(TweetAuthor + " span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); text != "" && !strings.HasPrefix(text, "@") {
			author.DisplayName = text
			return false
		}
		return true
	})
	return author
}

// parseTweet extracts every DOM-derived field of one authored tweet. Media
// video is attached separately by the resolver. Field failures degrade to
// zero values; only a missing permalink (checked by the caller) is fatal.
func parseTweet(art *goquery.Selection, id, handle string) types.Tweet {
	t := types.Tweet{
		ID:  id,
		URL: fmt.Sprintf("https://x.com/%s/status/%s", handle, id),
	}

	if dt, ok := art.Find(TweetTimestamp).First().Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, dt); err == nil {
			t.Timestamp = parsed
		}
	}

	t.Text = extractText(art)
	t.Likes = extractCount(art, LikeButton)
	t.Retweets = extractCount(art, RetweetButton)
	t.Replies = extractCount(art, ReplyButton)
	t.Views = extractViews(art)
	t.Media.Images = extractImages(art)

	return t
}

// extractText walks the tweet text container in document order, concatenating
// text runs and substituting inline emoji images with their alt text, then
// collapses whitespace runs to single spaces.
func extractText(art *goquery.Selection) string {
	tt := art.Find(TweetText).First()
	if tt.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(flattenText(tt)), " ")
}

func flattenText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
		case "img":
			b.WriteString(c.AttrOr("alt", ""))
		default:
			b.WriteString(flattenText(c))
		}
	})
	return b.String()
}

// countStrategy tries to pull a raw counter string out of an article. The
// fallback chain is an ordered list of these rather than nested branching, so
// each tier stays independently testable.
type countStrategy func(art *goquery.Selection) (string, bool)

func counterStrategies(sel string) []countStrategy {
	return []countStrategy{
		// Tier 1: the animated counter container inside the button.
		func(art *goquery.Selection) (string, bool) {
			s := strings.TrimSpace(art.Find(sel).First().Find(CountTransition).First().Text())
			return s, s != ""
		},
		// Tier 2: any direct text on the button.
		func(art *goquery.Selection) (string, bool) {
			s := strings.TrimSpace(art.Find(sel).First().Text())
			return s, s != ""
		},
		// Tier 3: a numeric token from the accessible label.
		func(art *goquery.Selection) (string, bool) {
			label, _ := art.Find(sel).First().Attr("aria-label")
			m := numTokenRe.FindString(label)
			return m, m != ""
		},
	}
}

func extractCount(art *goquery.Selection, sel string) int {
	for _, strat := range counterStrategies(sel) {
		if raw, ok := strat(art); ok {
			return parseCount(raw)
		}
	}
	return 0
}

// extractViews runs the counter chain against the analytics link, then falls
// back to scanning for a numeric span preceding a literal "views" label.
func extractViews(art *goquery.Selection) int {
	for _, strat := range counterStrategies(AnalyticsLink) {
		if raw, ok := strat(art); ok {
			return parseCount(raw)
		}
	}

	// Positional fallback: some renders put the count in a plain span row
	// like <span>1.2M</span><span> views</span>.
	views := 0
	art.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.Text()), "views") {
			return true
		}
		for prev := s.Prev(); prev.Length() > 0; prev = prev.Prev() {
			if tok := numTokenRe.FindString(prev.Text()); tok != "" {
				views = parseCount(tok)
				return false
			}
		}
		return true
	})
	return views
}

func extractImages(art *goquery.Selection) []string {
	var images []string
	seen := make(map[string]bool)
	art.Find(MediaImage).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && !seen[src] {
			seen[src] = true
			images = append(images, src)
		}
	})
	return images
}

// parseCount converts abbreviated metric strings like "1.2K", "5.7M",
// "12,345", or "423" to integers. Unparseable input yields 0.
func parseCount(s string) int {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(strings.ToUpper(s), "K"):
		multiplier = 1000
		s = s[:len(s)-1]
	case strings.HasSuffix(strings.ToUpper(s), "M"):
		multiplier = 1000000
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return int(value * multiplier)
}
