// Package export serializes thread records. JSON is the primary format; CSV
// flattens one row per tweet, Markdown renders a readable transcript, and RSS
// emits one feed item per tweet.
package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ibeckermayer/unspool/internal/types"
)

// WriteJSON writes the full thread records as indented JSON. A single thread
// is written as an object, a batch as an array, matching the shape readers of
// single-thread runs expect.
func WriteJSON(w io.Writer, threads []*types.Thread) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if len(threads) == 1 {
		return enc.Encode(threads[0])
	}
	return enc.Encode(threads)
}

// ToFile writes via fn to path, creating the file with 0644.
func ToFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
