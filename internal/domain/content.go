package domain

import "time"

// SourceKind identifies the family of adapter a ContentItem came from.
type SourceKind string

const (
	SourceRSS      SourceKind = "rss"
	SourceReddit   SourceKind = "reddit"
	SourceArxiv    SourceKind = "arxiv"
	SourceHTTP     SourceKind = "http"
	SourceSearch   SourceKind = "search"
	SourceSubstack SourceKind = "substack"
)

// ContentItem is a single candidate discovered from a source.
type ContentItem struct {
	SourceID    string
	Kind        SourceKind
	Title       string
	BodyExcerpt string
	URL         string
	PublishedAt time.Time // zero when the source does not report one
	OriginLabel string
}

// LedgerKey is the dedup key within a single scout's ledger partition.
// Together with the owning scout id it is unique in the Entry Ledger.
type LedgerKey struct {
	Kind     SourceKind
	SourceID string
}

// Key returns the item's ledger key.
func (c ContentItem) Key() LedgerKey {
	return LedgerKey{Kind: c.Kind, SourceID: c.SourceID}
}
