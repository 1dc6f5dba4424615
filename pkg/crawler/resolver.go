package crawler

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"forum-scraper/pkg/fetch"
	"forum-scraper/pkg/parse"
	"forum-scraper/pkg/utils"
)

// Resolver fetches and extracts one topic's detail page
type Resolver struct {
	fetcher   fetch.HTTPFetcher
	gate      *fetch.Gate
	extractor *parse.Extractor
	log       *logrus.Entry
}

// NewResolver creates a Resolver that takes one permit from gate per fetch
func NewResolver(fetcher fetch.HTTPFetcher, gate *fetch.Gate, extractor *parse.Extractor, log *logrus.Entry) *Resolver {
	return &Resolver{
		fetcher:   fetcher,
		gate:      gate,
		extractor: extractor,
		log:       log,
	}
}

// Resolve returns the text, price and currency of the topic at detailURL.
// It never fails: a fetch error yields an empty Detail and a parse error
// yields whatever fields were extracted. The gate permit is held for the
// fetch only and is released on every path.
func (r *Resolver) Resolve(ctx context.Context, detailURL string) parse.Detail {
	detailLog := r.log.WithField("url", detailURL)

	var body []byte
	err := r.gate.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		body, fetchErr = r.fetcher.Fetch(ctx, detailURL)
		return fetchErr
	})
	if err != nil {
		detailLog.WithField("category", utils.CategorizeError(err)).Warnf("Detail fetch failed: %v", err)
		return parse.Detail{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		detailLog.Warnf("Detail page is not parsable HTML: %v", err)
		return parse.Detail{}
	}

	detail, err := r.extractor.ExtractDetail(doc)
	if err != nil {
		detailLog.Debugf("Detail extraction incomplete: %v", err)
	}
	return detail
}
