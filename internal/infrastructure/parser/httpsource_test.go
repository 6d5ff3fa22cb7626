package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cristianleoo/influencerpy/internal/domain"
)

const pageHTML = `<!doctype html>
<html>
  <head><title>Release Notes</title></head>
  <body>
    <nav>Home About</nav>
    <article>Version 2.0 ships structured
      logging and faster startup.</article>
  </body>
</html>`

func TestHTTPAdapterFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pageHTML))
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.Client())

	src := domain.SourceConfig{
		Kind: domain.SourceHTTP,
		Name: "releases",
		URL:  server.URL + "/notes",
	}

	items, err := adapter.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly 1 item, got %d", len(items))
	}

	item := items[0]
	if item.SourceID != src.URL {
		t.Fatalf("page url must be the ledger key, got %s", item.SourceID)
	}
	if item.Title != "Release Notes" {
		t.Fatalf("unexpected title: %s", item.Title)
	}
	if item.BodyExcerpt != "Home About Version 2.0 ships structured logging and faster startup." {
		t.Fatalf("unexpected body: %q", item.BodyExcerpt)
	}
}

func TestHTTPAdapterSelectorOption(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pageHTML))
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.Client())

	items, err := adapter.Fetch(context.Background(), domain.SourceConfig{
		Kind:    domain.SourceHTTP,
		URL:     server.URL,
		Options: map[string]string{"selector": "article"},
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if items[0].BodyExcerpt != "Version 2.0 ships structured logging and faster startup." {
		t.Fatalf("selector not applied: %q", items[0].BodyExcerpt)
	}
}

func TestHTTPAdapterNoURL(t *testing.T) {
	t.Parallel()

	adapter := NewHTTPAdapter(nil)
	if _, err := adapter.Fetch(context.Background(), domain.SourceConfig{Name: "empty"}); err == nil {
		t.Fatalf("expected an error for missing url")
	}
}

func TestHTTPAdapterStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.Client())
	if _, err := adapter.Fetch(context.Background(), domain.SourceConfig{URL: server.URL}); err == nil {
		t.Fatalf("expected an error for non-200 status")
	}
}
