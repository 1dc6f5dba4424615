package orchestrate

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"forum-scraper/pkg/config"
	"forum-scraper/pkg/crawler"
	"forum-scraper/pkg/fetch"
	"forum-scraper/pkg/models"
	"forum-scraper/pkg/parse"
	"forum-scraper/pkg/storage"
	"forum-scraper/pkg/utils"
)

// Orchestrator crawls a range of listing pages in parallel under one shared gate
type Orchestrator struct {
	appCfg    *config.AppConfig
	log       *logrus.Entry
	extractor *parse.Extractor

	// Shared resources
	httpClient *http.Client
	fetcher    fetch.HTTPFetcher
}

// NewOrchestrator creates an orchestrator for a validated config.
// It owns one HTTP client shared by every listing and detail fetch.
func NewOrchestrator(appCfg *config.AppConfig, log *logrus.Entry) (*Orchestrator, error) {
	extractor, err := parse.NewExtractor(parse.RulesFromConfig(appCfg))
	if err != nil {
		return nil, err
	}

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(httpClient, fetch.Options{
		Headers:      appCfg.Headers,
		Timeout:      appCfg.FetchTimeout,
		MaxBodyBytes: appCfg.MaxBodyBytes,
	}, log.WithField("component", "fetch"))

	return &Orchestrator{
		appCfg:     appCfg,
		log:        log,
		extractor:  extractor,
		httpClient: httpClient,
		fetcher:    fetcher,
	}, nil
}

// WithFetcher replaces the fetcher used for all requests
func (o *Orchestrator) WithFetcher(f fetch.HTTPFetcher) *Orchestrator {
	o.fetcher = f
	return o
}

// Run crawls every page in the configured range and returns the pages in
// completion order. It fails only for an invalid page range or limit; fetch
// and parse problems show up as empty or failed pages instead.
func (o *Orchestrator) Run(ctx context.Context) (models.CrawlResult, error) {
	pageRange := o.appCfg.PageRange()
	if o.appCfg.MaxRequests < 1 {
		return models.CrawlResult{}, utils.WrapErrorf(utils.ErrConfigValidation, "max_requests must be >= 1, got %d", o.appCfg.MaxRequests)
	}
	urls, err := PageURLs(o.appCfg.BaseURL, o.appCfg.ForumPath, pageRange, o.appCfg.PageSize)
	if err != nil {
		return models.CrawlResult{}, err
	}

	startTime := time.Now()
	gate := fetch.NewGate(o.appCfg.MaxRequests)
	pageCrawler := crawler.NewCrawler(o.fetcher, gate, o.extractor, o.log.WithField("component", "crawler"))
	o.log.Infof("Starting crawl of pages %d-%d (%d pages, max %d requests in flight)",
		pageRange.From, pageRange.To, len(urls), gate.Limit())

	resultsCh := make(chan models.PageResult, len(urls))
	var wg sync.WaitGroup
	for i, pageURL := range urls {
		page := pageRange.From + i
		wg.Add(1)
		go func() {
			defer wg.Done()
			resultsCh <- o.crawlPage(ctx, pageCrawler, page, pageURL)
		}()
	}
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	result := models.CrawlResult{Pages: make([]models.PageResult, 0, len(urls))}
	for pageResult := range resultsCh {
		result.Pages = append(result.Pages, pageResult)
	}

	o.logSummary(result, gate, time.Since(startTime))
	o.httpClient.CloseIdleConnections()
	return result, nil
}

// crawlPage isolates one page task: a panic marks only that page as failed.
func (o *Orchestrator) crawlPage(ctx context.Context, c *crawler.Crawler, page int, pageURL string) (result models.PageResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithFields(logrus.Fields{
				"page":        page,
				"url":         pageURL,
				"panic_info":  r,
				"stage":       "PanicRecovery",
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered in page task")
			result = models.PageResult{Page: page, URL: pageURL, Failed: true}
		}
	}()
	return c.CrawlPage(ctx, page, pageURL)
}

// RunAndStore runs the crawl and hands the result to sink. Sink errors are returned
// together with the crawl result so callers can still report what was gathered.
func (o *Orchestrator) RunAndStore(ctx context.Context, sink storage.Sink) (models.CrawlResult, error) {
	result, err := o.Run(ctx)
	if err != nil {
		return result, err
	}
	writeStart := time.Now()
	if err := sink.Write(ctx, result); err != nil {
		o.log.WithField("category", utils.CategorizeError(err)).Errorf("Storing %d records failed: %v", result.Len(), err)
		return result, fmt.Errorf("storing crawl result: %w", err)
	}
	o.log.Infof("Stored %d records in %v", result.Len(), time.Since(writeStart))
	return result, nil
}

// logSummary logs a summary of the crawl
func (o *Orchestrator) logSummary(result models.CrawlResult, gate *fetch.Gate, totalDuration time.Duration) {
	o.log.Info("============================================")
	o.log.Infof("Crawl completed in %v", totalDuration)
	o.log.Info("Page Results:")

	for _, p := range result.SortedByPage().Pages {
		status := "OK"
		if p.Failed {
			status = "FAILED"
		}
		o.log.Infof("  page %d: %s - %d records", p.Page, status, len(p.Records))
	}

	failed := result.FailedPages()
	o.log.Info("--------------------------------------------")
	o.log.Infof("Total: %d pages (%d failed), %d records, %d fetches (peak %d in flight)",
		len(result.Pages), len(failed), result.Len(), gate.Acquired(), gate.Peak())
	if len(failed) > 0 {
		o.log.Warnf("Failed pages: %v", failed)
	}
	o.log.Info("============================================")
}
