package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gorilla/feeds"

	"github.com/ibeckermayer/unspool/internal/types"
)

// WriteRSS emits one feed per run with an item per tweet, so a thread can be
// followed from a feed reader. Multiple threads share one feed, newest run
// first in document order.
func WriteRSS(w io.Writer, threads []*types.Thread) error {
	if len(threads) == 0 {
		return fmt.Errorf("no threads to export")
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Thread by @%s", threads[0].Author.Handle),
		Link:        &feeds.Link{Href: threads[0].URL},
		Description: "Archived X thread",
		Created:     time.Now(),
	}

	for _, th := range threads {
		for _, t := range th.Tweets {
			item := &feeds.Item{
				Id:          t.ID,
				Title:       truncate(t.Text, 80),
				Link:        &feeds.Link{Href: t.URL},
				Description: t.Text,
				Author:      &feeds.Author{Name: th.Author.DisplayName},
				Created:     t.Timestamp,
			}
			feed.Items = append(feed.Items, item)
		}
	}

	rss, err := feed.ToRss()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rss)
	return err
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
