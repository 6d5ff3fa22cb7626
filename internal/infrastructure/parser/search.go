package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

// SearchAdapter queries an external web-search API. The endpoint contract is
// a JSON POST returning a flat result list; any provider matching that shape
// can sit behind it.
type SearchAdapter struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

var _ ports.SourceAdapter = (*SearchAdapter)(nil)

// NewSearchAdapter wires the search endpoint and credentials.
func NewSearchAdapter(client *http.Client, endpoint, apiKey string) *SearchAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &SearchAdapter{client: client, endpoint: endpoint, apiKey: apiKey}
}

// Kind identifies the adapter inside the registry.
func (s *SearchAdapter) Kind() domain.SourceKind {
	return domain.SourceSearch
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Content     string `json:"content"`
		PublishedAt string `json:"published_at"`
	} `json:"results"`
}

// Fetch posts the source query to the search API and maps results to content
// items keyed by result URL.
func (s *SearchAdapter) Fetch(ctx context.Context, src domain.SourceConfig) ([]domain.ContentItem, error) {
	if s.endpoint == "" {
		return nil, fmt.Errorf("search endpoint is not configured")
	}
	if src.Query == "" {
		return nil, fmt.Errorf("no query configured for source %s", src.Name)
	}

	body, err := json.Marshal(searchRequest{Query: src.Query, MaxResults: 20})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api returned %s", resp.Status)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	origin := src.Name
	if origin == "" {
		origin = "search:" + src.Query
	}

	items := make([]domain.ContentItem, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		if result.URL == "" {
			continue
		}
		var publishedAt time.Time
		if result.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, result.PublishedAt); err == nil {
				publishedAt = t.UTC()
			}
		}
		items = append(items, domain.ContentItem{
			SourceID:    result.URL,
			Kind:        domain.SourceSearch,
			Title:       result.Title,
			BodyExcerpt: clipExcerpt(result.Content),
			URL:         result.URL,
			PublishedAt: publishedAt,
			OriginLabel: origin,
		})
	}
	return items, nil
}
