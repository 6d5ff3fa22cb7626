package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

const defaultRedditSort = "hot"

// RedditAdapter reads subreddit listings through reddit's public JSON
// endpoints; no OAuth, just a descriptive User-Agent.
type RedditAdapter struct {
	client  *http.Client
	baseURL string
}

var _ ports.SourceAdapter = (*RedditAdapter)(nil)

// NewRedditAdapter wires an HTTP client. baseURL overrides the reddit host,
// which tests use to point at a local server.
func NewRedditAdapter(client *http.Client, baseURL string) *RedditAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://www.reddit.com"
	}
	return &RedditAdapter{client: client, baseURL: baseURL}
}

// Kind identifies the adapter inside the registry.
func (r *RedditAdapter) Kind() domain.SourceKind {
	return domain.SourceReddit
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
	Stickied   bool    `json:"stickied"`
}

// Fetch pulls the configured subreddits and flattens their posts. Stickied
// posts are skipped; they are pinned moderation threads, not content.
func (r *RedditAdapter) Fetch(ctx context.Context, src domain.SourceConfig) ([]domain.ContentItem, error) {
	if len(src.Subreddits) == 0 {
		return nil, fmt.Errorf("no subreddits configured for source %s", src.Name)
	}

	sort := src.RedditSort
	if sort == "" {
		sort = defaultRedditSort
	}

	var items []domain.ContentItem
	for _, subreddit := range src.Subreddits {
		listing, err := r.fetchListing(ctx, subreddit, sort)
		if err != nil {
			return nil, fmt.Errorf("subreddit %s: %w", subreddit, err)
		}

		for _, child := range listing.Data.Children {
			post := child.Data
			if post.ID == "" || post.Stickied {
				continue
			}
			origin := src.Name
			if origin == "" {
				origin = "r/" + post.Subreddit
			}
			items = append(items, domain.ContentItem{
				SourceID:    post.ID,
				Kind:        domain.SourceReddit,
				Title:       post.Title,
				BodyExcerpt: clipExcerpt(post.SelfText),
				URL:         "https://www.reddit.com" + post.Permalink,
				PublishedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
				OriginLabel: origin,
			})
		}
	}
	return items, nil
}

func (r *RedditAdapter) fetchListing(ctx context.Context, subreddit, sort string) (*redditListing, error) {
	url := fmt.Sprintf("%s/r/%s/%s.json?limit=50", r.baseURL, subreddit, sort)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "influencerpy/1.0 (content scout)")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned %s", resp.Status)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &listing, nil
}
