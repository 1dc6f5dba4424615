package models

import (
	"fmt"
	"sort"
)

// DefaultPrice is stored when a detail page yields no parsable amount.
const DefaultPrice = "0.00"

// PageRange is the inclusive range of listing page numbers to crawl
type PageRange struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// Validate checks that both bounds are positive and From <= To
func (r PageRange) Validate() error {
	if r.From < 1 {
		return fmt.Errorf("page range start must be >= 1, got %d", r.From)
	}
	if r.To < r.From {
		return fmt.Errorf("page range end (%d) must be >= start (%d)", r.To, r.From)
	}
	return nil
}

// Len returns the number of pages in the range (0 for an invalid range)
func (r PageRange) Len() int {
	if r.Validate() != nil {
		return 0
	}
	return r.To - r.From + 1
}

// PostSummary is one topic entry scraped from a listing page
type PostSummary struct {
	Title  string
	URL    string // Absolute detail page URL
	Author string
}

// PostRecord is a fully merged, ready-to-persist post
type PostRecord struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Author   string `json:"author"`
	Text     string `json:"text"`
	Price    string `json:"price"`    // Decimal string, DefaultPrice when unparsable
	Currency string `json:"currency"` // May be empty
}

// NewPostRecord merges a listing summary with the fields resolved from its detail page.
// An empty price falls back to DefaultPrice; currency passes through unchanged.
func NewPostRecord(summary PostSummary, text, price, currency string) PostRecord {
	if price == "" {
		price = DefaultPrice
	}
	return PostRecord{
		Title:    summary.Title,
		URL:      summary.URL,
		Author:   summary.Author,
		Text:     text,
		Price:    price,
		Currency: currency,
	}
}

// PageResult holds the records produced by one listing page
type PageResult struct {
	Page    int          `json:"page"`
	URL     string       `json:"url"`
	Records []PostRecord `json:"records"`
	Failed  bool         `json:"failed,omitempty"` // Listing fetch failed; Records is empty
}

// CrawlResult is the output of one run. Pages are in completion order,
// not request order; use SortedByPage for a deterministic view.
type CrawlResult struct {
	Pages []PageResult `json:"pages"`
}

// Len returns the total number of records across all pages
func (r CrawlResult) Len() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Records)
	}
	return n
}

// Records flattens all pages into one slice, keeping page order as stored
func (r CrawlResult) Records() []PostRecord {
	out := make([]PostRecord, 0, r.Len())
	for _, p := range r.Pages {
		out = append(out, p.Records...)
	}
	return out
}

// FailedPages returns the page numbers whose listing fetch failed
func (r CrawlResult) FailedPages() []int {
	var failed []int
	for _, p := range r.Pages {
		if p.Failed {
			failed = append(failed, p.Page)
		}
	}
	sort.Ints(failed)
	return failed
}

// SortedByPage returns a copy with pages ordered by page number
func (r CrawlResult) SortedByPage() CrawlResult {
	pages := make([]PageResult, len(r.Pages))
	copy(pages, r.Pages)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
	return CrawlResult{Pages: pages}
}
