package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

const arxivBaseURL = "https://arxiv.org"

var arxivDateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivAdapter crawls arxiv listing pages and extracts candidate papers.
type ArxivAdapter struct {
	client   *http.Client
	pageSize int
}

var _ ports.SourceAdapter = (*ArxivAdapter)(nil)

// NewArxivAdapter wires an HTTP client; pageSize defaults to 200.
func NewArxivAdapter(client *http.Client) *ArxivAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivAdapter{client: client, pageSize: 200}
}

// Kind identifies the adapter inside the registry.
func (a *ArxivAdapter) Kind() domain.SourceKind {
	return domain.SourceArxiv
}

// Fetch walks each configured category listing URL and returns the papers
// it finds. Dedup against prior runs is the ledger's job, not the adapter's;
// only duplicates within this fetch are dropped.
func (a *ArxivAdapter) Fetch(ctx context.Context, src domain.SourceConfig) ([]domain.ContentItem, error) {
	if len(src.Categories) == 0 {
		return nil, fmt.Errorf("no categories configured for source %s", src.Name)
	}

	items := make([]domain.ContentItem, 0)
	seen := map[string]struct{}{}

	for _, category := range src.Categories {
		pageURL, err := listingURL(category, a.pageSize)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}

		doc, err := a.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}

		for _, item := range extractListing(doc, src.Name) {
			if _, ok := seen[item.SourceID]; ok {
				continue
			}
			if src.Query != "" && !matchesQuery(item, src.Query) {
				continue
			}
			seen[item.SourceID] = struct{}{}
			items = append(items, item)
		}
	}

	return items, nil
}

func (a *ArxivAdapter) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "influencerpy/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return doc, nil
}

func extractListing(doc *goquery.Document, origin string) []domain.ContentItem {
	var items []domain.ContentItem
	doc.Find("dl > dt").Each(func(i int, dt *goquery.Selection) {
		dd := dt.Next()
		if item, ok := parseListingEntry(dt, dd, origin); ok {
			items = append(items, item)
		}
	})
	return items
}

func parseListingEntry(dt, dd *goquery.Selection, origin string) (domain.ContentItem, bool) {
	link := dt.Find(`a[href*="/abs/"]`).First()

	id := strings.TrimSpace(link.Text())
	href, _ := link.Attr("href")
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if !strings.HasPrefix(href, "http") {
		href = arxivBaseURL + href
	}
	if id == "" {
		return domain.ContentItem{}, false
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find(".mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}
	var publishedAt time.Time
	if match := arxivDateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed.UTC()
		}
	}

	return domain.ContentItem{
		SourceID:    id,
		Kind:        domain.SourceArxiv,
		Title:       title,
		BodyExcerpt: abstract,
		URL:         href,
		PublishedAt: publishedAt,
		OriginLabel: origin,
	}, true
}

func matchesQuery(item domain.ContentItem, query string) bool {
	needle := strings.ToLower(query)
	return strings.Contains(strings.ToLower(item.Title), needle) ||
		strings.Contains(strings.ToLower(item.BodyExcerpt), needle)
}

func listingURL(base string, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(0))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
