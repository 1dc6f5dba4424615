package crawler

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"forum-scraper/pkg/fetch"
	"forum-scraper/pkg/models"
	"forum-scraper/pkg/parse"
	"forum-scraper/pkg/utils"
)

// DetailResolver resolves one topic URL into its detail fields
type DetailResolver interface {
	Resolve(ctx context.Context, detailURL string) parse.Detail
}

// Crawler crawls single listing pages: one listing fetch, then one detail
// resolution per topic. Listing and detail fetches share the same Gate.
type Crawler struct {
	fetcher   fetch.HTTPFetcher
	gate      *fetch.Gate
	extractor *parse.Extractor
	resolver  DetailResolver
	log       *logrus.Entry
}

// NewCrawler creates a Crawler whose detail fetches go through a Resolver on the same fetcher and gate
func NewCrawler(fetcher fetch.HTTPFetcher, gate *fetch.Gate, extractor *parse.Extractor, log *logrus.Entry) *Crawler {
	return &Crawler{
		fetcher:   fetcher,
		gate:      gate,
		extractor: extractor,
		resolver:  NewResolver(fetcher, gate, extractor, log.WithField("stage", "detail")),
		log:       log,
	}
}

// WithResolver replaces the detail resolver
func (c *Crawler) WithResolver(resolver DetailResolver) *Crawler {
	c.resolver = resolver
	return c
}

// CrawlPage fetches the listing page at pageURL and resolves every topic on it.
// A failed listing fetch gives an empty result with Failed set. Records keep
// the order the topics appear in on the listing page.
func (c *Crawler) CrawlPage(ctx context.Context, page int, pageURL string) models.PageResult {
	result := models.PageResult{Page: page, URL: pageURL}
	pageLog := c.log.WithFields(logrus.Fields{"page": page, "url": pageURL})
	startTime := time.Now()

	state := models.PageStatePending
	advance := func(next models.PageState) {
		if !models.CanTransition(state, next) {
			pageLog.Errorf("Invalid page state transition %s -> %s", state, next)
		}
		pageLog.Debugf("Page state %s -> %s", state, next)
		state = next
	}

	summaries, err := c.fetchListing(ctx, pageURL, advance, pageLog)
	if err != nil {
		advance(models.PageStateFailedFetch)
		pageLog.WithFields(logrus.Fields{
			"category": utils.CategorizeError(err),
			"duration": time.Since(startTime).String(),
		}).Warnf("Listing fetch failed: %v", err)
		result.Failed = true
		advance(models.PageStateDone)
		return result
	}

	advance(models.PageStateResolving)
	result.Records = c.resolveAll(ctx, summaries, pageLog)
	advance(models.PageStateDone)

	pageLog.WithFields(logrus.Fields{
		"topics":   len(summaries),
		"records":  len(result.Records),
		"duration": time.Since(startTime).String(),
	}).Info("Page crawled")
	return result
}

// fetchListing holds one gate permit for the listing fetch and parse, and
// releases it before any detail fetch starts so a gate of size 1 cannot deadlock.
func (c *Crawler) fetchListing(ctx context.Context, pageURL string, advance func(models.PageState), pageLog *logrus.Entry) ([]models.PostSummary, error) {
	if err := c.gate.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for permit: %w", utils.ErrFetch, err)
	}
	defer c.gate.Release()

	advance(models.PageStateFetching)
	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	advance(models.PageStateExtracting)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		pageLog.Warnf("%v: listing HTML: %v", utils.ErrParsing, err)
		return nil, nil
	}
	summaries, dropped := c.extractor.ExtractListingWithErrors(doc)
	for _, dropErr := range dropped {
		pageLog.Debugf("Dropped topic: %v", dropErr)
	}
	pageLog.Debugf("Found %d topics (%d dropped)", len(summaries), len(dropped))
	return summaries, nil
}

// resolveAll resolves all summaries concurrently. Each goroutine writes only
// its own slot, so the output order matches the summaries order.
func (c *Crawler) resolveAll(ctx context.Context, summaries []models.PostSummary, pageLog *logrus.Entry) []models.PostRecord {
	slots := make([]*models.PostRecord, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	for i, summary := range summaries {
		g.Go(func() error {
			slots[i] = c.resolveOne(gctx, summary, pageLog)
			return nil
		})
	}
	_ = g.Wait() // resolveOne never returns an error

	records := make([]models.PostRecord, 0, len(summaries))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// resolveOne returns nil when resolution panicked; the topic is dropped.
func (c *Crawler) resolveOne(ctx context.Context, summary models.PostSummary, pageLog *logrus.Entry) (record *models.PostRecord) {
	defer func() {
		if r := recover(); r != nil {
			pageLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"topic_url":   summary.URL,
				"stage":       "PanicRecovery",
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered while resolving topic")
			record = nil
		}
	}()

	detail := c.resolver.Resolve(ctx, summary.URL)
	merged := models.NewPostRecord(summary, detail.Text, detail.Price, detail.Currency)
	return &merged
}
