package scraper

import "github.com/ibeckermayer/unspool/internal/types"

// session holds the state owned by exactly one thread traversal. It is
// discarded when the run ends; nothing survives across thread URLs.
type session struct {
	threadURL string

	// author is resolved once from the first materialized article and is
	// authoritative for the rest of the session, even if later articles
	// claim a different handle.
	author   types.Author
	resolved bool

	seen map[string]bool

	// stallCount counts consecutive passes that admitted no new tweet.
	// tailCount counts consecutive non-author articles; once any authored
	// tweet has been admitted, the first tail article ends the scan.
	stallCount int
	tailCount  int

	// expandRounds bounds how many EXPANDING transitions the session may
	// take. Controls cannot be identified across re-renders, so exhaustion
	// is modeled as a round budget.
	expandRounds int
}

func newSession(threadURL string) *session {
	return &session{
		threadURL: threadURL,
		seen:      make(map[string]bool),
	}
}
