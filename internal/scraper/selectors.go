package scraper

// X.com DOM selectors
// These are isolated here because X changes their DOM frequently
// Update these when scraping breaks

const (
	// Thread page structure
	TweetArticle = `article[data-testid="tweet"]`

	// Tweet content selectors
	TweetText      = `[data-testid="tweetText"]`
	TweetAuthor    = `[data-testid="User-Name"]`
	TweetTimestamp = `time`
	TweetLink      = `a[href*="/status/"]`
	AvatarImage    = `img[src*="profile_images"]`
	MediaImage     = `img[src*="twimg.com/media"]`

	// Engagement selectors
	ReplyButton     = `[data-testid="reply"]`
	RetweetButton   = `[data-testid="retweet"]`
	LikeButton      = `[data-testid="like"]`
	AnalyticsLink   = `a[href$="/analytics"]`
	CountTransition = `[data-testid="app-text-transition-container"]`

	// Collapsed-content controls
	ShowMoreText = `[data-testid="tweet-text-show-more-link"]`
)

// Common wait conditions
const (
	WaitForTweets = TweetArticle
)
