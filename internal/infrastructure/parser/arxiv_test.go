package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cristianleoo/influencerpy/internal/domain"
)

func TestListingURL(t *testing.T) {
	t.Parallel()

	base := "https://arxiv.org/list/cs.AI/recent"
	u, err := listingURL(base, 200)
	if err != nil {
		t.Fatalf("listingURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	if parsed.Scheme != "https" || parsed.Host != "arxiv.org" {
		t.Fatalf("unexpected host: %s", parsed.Host)
	}

	q := parsed.Query()
	if q.Get("skip") != "0" {
		t.Fatalf("expected skip=0, got %s", q.Get("skip"))
	}
	if q.Get("show") != "200" {
		t.Fatalf("expected show=200, got %s", q.Get("show"))
	}
}

func TestParseListingEntry(t *testing.T) {
	t.Parallel()

	html := `
	<dl>
	  <dt>
	    <span class="list-identifier"><a href="/abs/2501.12345">arXiv:2501.12345</a></span>
	  </dt>
	  <dd>
	    <div class="list-date">Date: 8 Aug 2026</div>
	    <div class="list-title mathjax">Title: Sample Title</div>
	    <p class="mathjax">Abstract: Sample abstract text.</p>
	  </dd>
	</dl>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	dt := doc.Find("dt").First()
	dd := doc.Find("dd").First()

	item, ok := parseListingEntry(dt, dd, "arxiv-ai")
	if !ok {
		t.Fatalf("expected entry to parse")
	}

	if item.SourceID != "arXiv:2501.12345" {
		t.Fatalf("unexpected id: %s", item.SourceID)
	}
	if item.Kind != domain.SourceArxiv {
		t.Fatalf("unexpected kind: %s", item.Kind)
	}
	if item.Title != "Sample Title" {
		t.Fatalf("unexpected title: %s", item.Title)
	}
	if item.BodyExcerpt != "Sample abstract text." {
		t.Fatalf("unexpected abstract: %s", item.BodyExcerpt)
	}
	if item.URL != "https://arxiv.org/abs/2501.12345" {
		t.Fatalf("unexpected url: %s", item.URL)
	}
	if item.OriginLabel != "arxiv-ai" {
		t.Fatalf("unexpected origin: %s", item.OriginLabel)
	}

	wantDate := time.Date(2026, time.August, 8, 0, 0, 0, 0, time.UTC)
	if !item.PublishedAt.Equal(wantDate) {
		t.Fatalf("unexpected published date: %v", item.PublishedAt)
	}
}

func TestArxivAdapterFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<dl>
		  <dt>
		    <span class="list-identifier"><a href="/abs/2501.00001">arXiv:2501.00001</a></span>
		  </dt>
		  <dd>
		    <div class="list-date">Date: 8 Aug 2026</div>
		    <div class="list-title mathjax">Title: Agent Benchmarks</div>
		    <p class="mathjax">Abstract: benchmarking agents.</p>
		  </dd>
		  <dt>
		    <span class="list-identifier"><a href="/abs/2501.00002">arXiv:2501.00002</a></span>
		  </dt>
		  <dd>
		    <div class="list-date">Date: 7 Aug 2026</div>
		    <div class="list-title mathjax">Title: Graph Kernels</div>
		    <p class="mathjax">Abstract: kernels on graphs.</p>
		  </dd>
		</dl>`))
	}))
	defer server.Close()

	adapter := NewArxivAdapter(server.Client())

	src := domain.SourceConfig{
		Kind:       domain.SourceArxiv,
		Name:       "arxiv-ai",
		Categories: []string{server.URL + "/list/cs.AI"},
	}

	items, err := adapter.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].SourceID != "arXiv:2501.00001" {
		t.Fatalf("unexpected first id: %s", items[0].SourceID)
	}
}

func TestArxivAdapterQueryFilter(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<dl>
		  <dt><span class="list-identifier"><a href="/abs/1">arXiv:1</a></span></dt>
		  <dd>
		    <div class="list-title mathjax">Title: Agent Benchmarks</div>
		    <p class="mathjax">Abstract: benchmarking agents.</p>
		  </dd>
		  <dt><span class="list-identifier"><a href="/abs/2">arXiv:2</a></span></dt>
		  <dd>
		    <div class="list-title mathjax">Title: Graph Kernels</div>
		    <p class="mathjax">Abstract: kernels on graphs.</p>
		  </dd>
		</dl>`))
	}))
	defer server.Close()

	adapter := NewArxivAdapter(server.Client())

	src := domain.SourceConfig{
		Kind:       domain.SourceArxiv,
		Name:       "arxiv-ai",
		Query:      "agent",
		Categories: []string{server.URL + "/list/cs.AI"},
	}

	items, err := adapter.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 filtered item, got %d", len(items))
	}
	if items[0].SourceID != "arXiv:1" {
		t.Fatalf("unexpected item: %s", items[0].SourceID)
	}
}

func TestArxivAdapterNoCategories(t *testing.T) {
	t.Parallel()

	adapter := NewArxivAdapter(nil)
	if _, err := adapter.Fetch(context.Background(), domain.SourceConfig{Name: "empty"}); err == nil {
		t.Fatalf("expected an error for missing categories")
	}
}
