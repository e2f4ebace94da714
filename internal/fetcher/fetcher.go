// Package fetcher downloads project feeds and extracts submission
// suggestions from them.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Suggestion is one recent feed entry offered to editors as a candidate
// news item to chase.
type Suggestion struct {
	Title     string
	Link      string
	Published time.Time
}

// Fetcher downloads and parses RSS/Atom feeds.
type Fetcher struct {
	client HTTPClient
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{client: client}
}

// Suggestions fetches the feed at url and returns its newest entries,
// capped at limit.
func (f *Fetcher) Suggestions(ctx context.Context, url string, limit int) ([]Suggestion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsBot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var out []Suggestion
	for _, item := range feed.Items {
		if len(out) >= limit {
			break
		}
		s := Suggestion{Title: item.Title, Link: item.Link}
		if item.PublishedParsed != nil {
			s.Published = *item.PublishedParsed
		}
		out = append(out, s)
	}
	return out, nil
}
