package parse

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"forum-scraper/pkg/utils"
)

// Detail holds the fields pulled from one topic page. Any field may be empty.
type Detail struct {
	Text     string
	Price    string
	Currency string
}

// ExtractDetail pulls body text, price and currency from a topic page.
// On failure it returns an ErrParsing error together with whatever fields
// were found before the failure; callers apply their own defaults.
func (e *Extractor) ExtractDetail(doc *goquery.Document) (Detail, error) {
	if doc == nil {
		return Detail{}, fmt.Errorf("%w: nil detail document", utils.ErrParsing)
	}
	content := doc.Find(e.rules.ContentSelector).First()
	if content.Length() == 0 {
		return Detail{}, fmt.Errorf("%w: no node matches '%s'", utils.ErrParsing, e.rules.ContentSelector)
	}

	var d Detail
	d.Text = content.Text()
	if e.noise != nil {
		d.Text = e.noise.ReplaceAllString(d.Text, "")
	}
	return e.matchAmounts(d)
}

// matchAmounts runs the two pattern searches independently of each other.
// Currency is taken from the second match, not the first.
func (e *Extractor) matchAmounts(d Detail) (Detail, error) {
	var missing []string

	if m := e.price.FindStringSubmatch(d.Text); m != nil {
		d.Price = m[1]
	} else {
		missing = append(missing, "price")
	}

	matches := e.currency.FindAllStringSubmatch(d.Text, 2)
	if len(matches) >= 2 {
		d.Currency = matches[1][2]
	} else {
		missing = append(missing, "currency")
	}

	if len(missing) > 0 {
		return d, fmt.Errorf("%w: no %v match", utils.ErrParsing, missing)
	}
	return d, nil
}
