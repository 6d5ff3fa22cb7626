package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cristianleoo/influencerpy/internal/domain"
)

func TestRedditAdapterFetch(t *testing.T) {
	t.Parallel()

	var gotPath, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"children": [
					{"data": {"id": "p1", "title": "Pinned rules", "stickied": true,
						"permalink": "/r/golang/comments/p1/", "subreddit": "golang", "created_utc": 1755600000}},
					{"data": {"id": "p2", "title": "Interesting post", "selftext": "some body",
						"permalink": "/r/golang/comments/p2/", "subreddit": "golang", "created_utc": 1755686400}}
				]
			}
		}`))
	}))
	defer server.Close()

	adapter := NewRedditAdapter(server.Client(), server.URL)

	src := domain.SourceConfig{
		Kind:       domain.SourceReddit,
		Name:       "go-community",
		Subreddits: []string{"golang"},
		RedditSort: "top",
	}

	items, err := adapter.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	if gotPath != "/r/golang/top.json" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAgent == "" {
		t.Fatalf("requests must carry a User-Agent")
	}

	if len(items) != 1 {
		t.Fatalf("expected stickied post to be skipped, got %d items", len(items))
	}
	item := items[0]
	if item.SourceID != "p2" || item.Kind != domain.SourceReddit {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.URL != "https://www.reddit.com/r/golang/comments/p2/" {
		t.Fatalf("unexpected url: %s", item.URL)
	}
	if item.BodyExcerpt != "some body" {
		t.Fatalf("unexpected excerpt: %s", item.BodyExcerpt)
	}
	if item.PublishedAt.IsZero() {
		t.Fatalf("expected created_utc to map to a published date")
	}
}

func TestRedditAdapterDefaultSort(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"data":{"children":[]}}`))
	}))
	defer server.Close()

	adapter := NewRedditAdapter(server.Client(), server.URL)
	_, err := adapter.Fetch(context.Background(), domain.SourceConfig{
		Kind:       domain.SourceReddit,
		Subreddits: []string{"golang"},
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if gotPath != "/r/golang/hot.json" {
		t.Fatalf("expected hot default, got %s", gotPath)
	}
}

func TestRedditAdapterNoSubreddits(t *testing.T) {
	t.Parallel()

	adapter := NewRedditAdapter(nil, "")
	if _, err := adapter.Fetch(context.Background(), domain.SourceConfig{Name: "empty"}); err == nil {
		t.Fatalf("expected an error for missing subreddits")
	}
}
