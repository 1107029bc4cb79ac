// Package scrape fetches a homepage and reduces it to plain text for the
// language model.
package scrape

import (
	"context"
	"fmt"
)

// Result holds the cleaned text of a single fetched page.
type Result struct {
	URL        string
	StatusCode int
	Text       string
	Truncated  bool
	Block      BlockType // set when the page looks like an anti-bot interstitial
}

// Scraper fetches a single URL and returns its cleaned text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
}

// FetchError reports a page that could not be retrieved: a transport failure
// (StatusCode 0) or a non-2xx response. Block is set when the refusal
// came from anti-bot protection.
type FetchError struct {
	URL        string
	StatusCode int
	Block      BlockType
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("error fetching URL %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("error fetching URL %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
