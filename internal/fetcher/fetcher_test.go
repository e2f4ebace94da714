package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
)

type mockHTTPClient struct {
	status int
	body   string
	err    error
}

func (m *mockHTTPClient) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFeedXML(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/feed.xml")
	if err != nil {
		t.Fatalf("read feed xml: %v", err)
	}
	return string(data)
}

func TestSuggestions(t *testing.T) {
	ctx := context.Background()

	t.Run("parses and caps entries", func(t *testing.T) {
		f := New(&mockHTTPClient{body: loadFeedXML(t)})
		got, err := f.Suggestions(ctx, "https://example.org/feed.xml", 2)
		if err != nil {
			t.Fatalf("suggestions: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d suggestions, want 2", len(got))
		}
		if got[0].Title != "Calendar 4.2 released" {
			t.Errorf("first title = %q", got[0].Title)
		}
		if got[0].Link != "https://example.org/calendar/4.2" {
			t.Errorf("first link = %q", got[0].Link)
		}
		if got[0].Published.IsZero() {
			t.Error("published date not parsed")
		}
	})

	t.Run("http error", func(t *testing.T) {
		f := New(&mockHTTPClient{err: errors.New("connection refused")})
		if _, err := f.Suggestions(ctx, "https://example.org/feed.xml", 5); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad status", func(t *testing.T) {
		f := New(&mockHTTPClient{status: http.StatusNotFound, body: "gone"})
		if _, err := f.Suggestions(ctx, "https://example.org/feed.xml", 5); err == nil {
			t.Error("expected error on 404")
		}
	})

	t.Run("invalid xml", func(t *testing.T) {
		f := New(&mockHTTPClient{body: "not a feed"})
		if _, err := f.Suggestions(ctx, "https://example.org/feed.xml", 5); err == nil {
			t.Error("expected parse error")
		}
	})
}
