package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

const excerptLimit = 1000

// FeedAdapter reads syndication feeds. The kind is injected so the same
// implementation serves both generic RSS sources and substack publications,
// which expose plain RSS at /feed.
type FeedAdapter struct {
	parser *gofeed.Parser
	kind   domain.SourceKind
}

var _ ports.SourceAdapter = (*FeedAdapter)(nil)

// NewFeedAdapter builds an adapter reporting the given source kind.
func NewFeedAdapter(kind domain.SourceKind) *FeedAdapter {
	parser := gofeed.NewParser()
	parser.UserAgent = "influencerpy/1.0"
	return &FeedAdapter{parser: parser, kind: kind}
}

// Kind identifies the adapter inside the registry.
func (f *FeedAdapter) Kind() domain.SourceKind {
	return f.kind
}

// Fetch parses every configured feed URL and flattens the entries. A feed
// that fails to parse fails the whole source; partial tolerance is handled
// one level up, per source.
func (f *FeedAdapter) Fetch(ctx context.Context, src domain.SourceConfig) ([]domain.ContentItem, error) {
	feeds := src.Feeds
	if len(feeds) == 0 && src.URL != "" {
		feeds = []string{src.URL}
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feed urls configured for source %s", src.Name)
	}

	var items []domain.ContentItem
	for _, feedURL := range feeds {
		feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
		}

		origin := src.Name
		if origin == "" {
			origin = feed.Title
		}

		for _, entry := range feed.Items {
			item, ok := feedEntry(entry, f.kind, origin)
			if !ok {
				continue
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func feedEntry(entry *gofeed.Item, kind domain.SourceKind, origin string) (domain.ContentItem, bool) {
	id := entry.GUID
	if id == "" {
		id = entry.Link
	}
	if id == "" {
		return domain.ContentItem{}, false
	}

	excerpt := entry.Description
	if excerpt == "" {
		excerpt = entry.Content
	}

	var publishedAt time.Time
	if entry.PublishedParsed != nil {
		publishedAt = entry.PublishedParsed.UTC()
	} else if entry.UpdatedParsed != nil {
		publishedAt = entry.UpdatedParsed.UTC()
	}

	return domain.ContentItem{
		SourceID:    id,
		Kind:        kind,
		Title:       strings.TrimSpace(entry.Title),
		BodyExcerpt: clipExcerpt(excerpt),
		URL:         entry.Link,
		PublishedAt: publishedAt,
		OriginLabel: origin,
	}, true
}

func clipExcerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= excerptLimit {
		return text
	}
	clipped := text[:excerptLimit]
	if idx := strings.LastIndexByte(clipped, ' '); idx > 0 {
		clipped = clipped[:idx]
	}
	return clipped
}
