package storage

import (
	"context"

	"forum-scraper/pkg/models"
)

// Sink persists the records of one crawl. Each PostRecord becomes one
// row or document with the fields title, url, author, text, price and currency.
type Sink interface {
	// Write stores every record of result. Records are written in page order.
	Write(ctx context.Context, result models.CrawlResult) error

	// Close releases the underlying connection, database or file
	Close() error
}

// orderedRecords flattens a crawl result in page order, topic order within a page
func orderedRecords(result models.CrawlResult) []models.PostRecord {
	return result.SortedByPage().Records()
}
