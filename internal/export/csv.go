package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/unspool/internal/types"
)

var csvHeader = []string{
	"thread_url", "tweet_id", "timestamp", "author_handle", "text",
	"likes", "retweets", "replies", "views", "images", "video_urls",
}

// WriteCSV flattens every tweet of every thread into one row, with the
// thread URL carried on each row.
func WriteCSV(w io.Writer, threads []*types.Thread) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, th := range threads {
		for _, t := range th.Tweets {
			var videoURLs []string
			if t.Media.Video != nil {
				for _, v := range t.Media.Video.Variants {
					videoURLs = append(videoURLs, v.URL)
				}
			}
			row := []string{
				th.URL,
				t.ID,
				t.Timestamp.Format(time.RFC3339),
				th.Author.Handle,
				t.Text,
				strconv.Itoa(t.Likes),
				strconv.Itoa(t.Retweets),
				strconv.Itoa(t.Replies),
				strconv.Itoa(t.Views),
				strings.Join(t.Media.Images, " "),
				strings.Join(videoURLs, " "),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
