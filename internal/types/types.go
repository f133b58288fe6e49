package types

import "time"

// Author identifies the account that started a thread.
type Author struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// MediaVariant is one encoded rendition of a video.
// Bitrate is in bits per second; 0 means unknown. Resolution is "WxH" or
// empty when it could not be determined.
type MediaVariant struct {
	Bitrate    int    `json:"bitrate,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	URL        string `json:"url"`
}

// Video carries the resolved renditions of a tweet's video.
type Video struct {
	Thumbnail string         `json:"thumbnail,omitempty"`
	Variants  []MediaVariant `json:"variants"`
}

// Media holds everything attached to a tweet. Video is nil (and omitted from
// JSON) when no variant was ever resolved.
type Media struct {
	Images []string `json:"images,omitempty"`
	Video  *Video   `json:"video,omitempty"`
}

// Tweet represents one authored unit of content within a thread.
type Tweet struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
	Views     int       `json:"views"`
	Media     Media     `json:"media"`
	URL       string    `json:"url,omitempty"`
}

// HasVideo reports whether any video variant was resolved for the tweet.
func (t *Tweet) HasVideo() bool {
	return t.Media.Video != nil && len(t.Media.Video.Variants) > 0
}

// Thread is the output record for one scraped thread URL.
type Thread struct {
	URL       string    `json:"thread_url"`
	Author    Author    `json:"author"`
	Count     int       `json:"tweet_count"`
	Tweets    []Tweet   `json:"tweets"`
	ScrapedAt time.Time `json:"scraped_at"`
}
