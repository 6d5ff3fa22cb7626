package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

// HTTPAdapter fetches a single web page and turns it into one content item.
// The page URL doubles as the ledger key, so a page is processed once per
// scout unless the ledger is reset.
type HTTPAdapter struct {
	client *http.Client
}

var _ ports.SourceAdapter = (*HTTPAdapter)(nil)

// NewHTTPAdapter wires an HTTP client.
func NewHTTPAdapter(client *http.Client) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPAdapter{client: client}
}

// Kind identifies the adapter inside the registry.
func (h *HTTPAdapter) Kind() domain.SourceKind {
	return domain.SourceHTTP
}

// Fetch downloads the configured URL and extracts its title and body text.
// An optional "selector" option narrows extraction to matching elements.
func (h *HTTPAdapter) Fetch(ctx context.Context, src domain.SourceConfig) ([]domain.ContentItem, error) {
	if src.URL == "" {
		return nil, fmt.Errorf("no url configured for source %s", src.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "influencerpy/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	selection := doc.Find("body")
	if selector, ok := src.Options["selector"]; ok && selector != "" {
		selection = doc.Find(selector)
	}
	body := strings.Join(strings.Fields(selection.Text()), " ")

	origin := src.Name
	if origin == "" {
		origin = src.URL
	}

	return []domain.ContentItem{{
		SourceID:    src.URL,
		Kind:        domain.SourceHTTP,
		Title:       title,
		BodyExcerpt: clipExcerpt(body),
		URL:         src.URL,
		OriginLabel: origin,
	}}, nil
}
