package export

import (
	"fmt"
	"io"
	"time"

	"github.com/ibeckermayer/unspool/internal/types"
)

// WriteMarkdown renders threads as a readable transcript: a heading per
// thread, then each tweet with its author line, timestamp, text, and media
// links.
func WriteMarkdown(w io.Writer, threads []*types.Thread) error {
	for _, th := range threads {
		if _, err := fmt.Fprintf(w, "# Thread: %s\n", th.URL); err != nil {
			return err
		}
		for _, t := range th.Tweets {
			fmt.Fprintf(w, "\n---\n\n**%s** (@%s) – %s\n\n%s\n",
				th.Author.DisplayName, th.Author.Handle,
				t.Timestamp.Format(time.RFC3339), t.Text)
			for _, img := range t.Media.Images {
				fmt.Fprintf(w, "\n![image](%s)\n", img)
			}
			if t.Media.Video != nil {
				for _, v := range t.Media.Video.Variants {
					fmt.Fprintf(w, "\n[video %s](%s)\n", v.Resolution, v.URL)
				}
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
