package parse

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"forum-scraper/pkg/models"
	"forum-scraper/pkg/utils"
)

// ExtractListing returns one PostSummary per topic entry on a listing page.
// Entries missing a title, link or author are dropped; this never fails.
func (e *Extractor) ExtractListing(doc *goquery.Document) []models.PostSummary {
	if doc == nil {
		return nil
	}
	var summaries []models.PostSummary
	doc.Find(e.rules.TopicSelector).Each(func(_ int, node *goquery.Selection) {
		summary, err := e.extractSummary(node)
		if err != nil {
			return
		}
		summaries = append(summaries, summary)
	})
	return summaries
}

// ExtractListingWithErrors is ExtractListing that also reports why entries were dropped
func (e *Extractor) ExtractListingWithErrors(doc *goquery.Document) ([]models.PostSummary, []error) {
	if doc == nil {
		return nil, []error{fmt.Errorf("%w: nil listing document", utils.ErrParsing)}
	}
	var summaries []models.PostSummary
	var errs []error
	doc.Find(e.rules.TopicSelector).Each(func(i int, node *goquery.Selection) {
		summary, err := e.extractSummary(node)
		if err != nil {
			errs = append(errs, fmt.Errorf("topic #%d: %w", i, err))
			return
		}
		summaries = append(summaries, summary)
	})
	return summaries, errs
}

func (e *Extractor) extractSummary(node *goquery.Selection) (models.PostSummary, error) {
	title := strings.TrimSpace(node.Find(e.rules.TitleSelector).First().Text())
	if title == "" {
		return models.PostSummary{}, fmt.Errorf("%w: missing title", utils.ErrParsing)
	}

	href, exists := node.Find(e.rules.LinkSelector).First().Attr("href")
	if !exists {
		return models.PostSummary{}, fmt.Errorf("%w: missing link for '%s'", utils.ErrParsing, title)
	}
	link, err := ResolveLink(e.base, href)
	if err != nil {
		return models.PostSummary{}, fmt.Errorf("%w: link for '%s': %w", utils.ErrParsing, title, err)
	}

	author := strings.TrimSpace(node.Find(e.rules.AuthorSelector).First().Text())
	if author == "" {
		return models.PostSummary{}, fmt.Errorf("%w: missing author for '%s'", utils.ErrParsing, title)
	}

	return models.PostSummary{Title: title, URL: link, Author: author}, nil
}
