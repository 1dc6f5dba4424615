package parse

import (
	"fmt"
	"net/url"
	"regexp"

	"forum-scraper/pkg/config"
	"forum-scraper/pkg/utils"
)

// Rules is the declarative description of where fields live in forum markup
type Rules struct {
	BaseURL         string
	TopicSelector   string
	TitleSelector   string
	LinkSelector    string
	AuthorSelector  string
	ContentSelector string
	NoisePattern    string
	PricePattern    string
	CurrencyPattern string
}

// RulesFromConfig builds Rules from a validated AppConfig
func RulesFromConfig(cfg *config.AppConfig) Rules {
	return Rules{
		BaseURL:         cfg.BaseURL,
		TopicSelector:   cfg.Selectors.Topic,
		TitleSelector:   cfg.Selectors.Title,
		LinkSelector:    cfg.Selectors.Link,
		AuthorSelector:  cfg.Selectors.Author,
		ContentSelector: cfg.Selectors.Content,
		NoisePattern:    cfg.Patterns.Noise,
		PricePattern:    cfg.Patterns.Price,
		CurrencyPattern: cfg.Patterns.Currency,
	}
}

// DefaultRules returns the rules for the overclockers.ua trade board
func DefaultRules() Rules {
	return Rules{
		BaseURL:         config.DefaultBaseURL,
		TopicSelector:   config.DefaultTopicSelector,
		TitleSelector:   config.DefaultTitleSelector,
		LinkSelector:    config.DefaultLinkSelector,
		AuthorSelector:  config.DefaultAuthorSelector,
		ContentSelector: config.DefaultContentSelector,
		NoisePattern:    config.DefaultNoisePattern,
		PricePattern:    config.DefaultPricePattern,
		CurrencyPattern: config.DefaultCurrencyPattern,
	}
}

// Extractor applies compiled Rules to parsed documents. It holds no mutable
// state and is safe for concurrent use.
type Extractor struct {
	rules    Rules
	base     *url.URL
	noise    *regexp.Regexp
	price    *regexp.Regexp
	currency *regexp.Regexp
}

// NewExtractor compiles rules into an Extractor
func NewExtractor(rules Rules) (*Extractor, error) {
	base, err := ParseBaseURL(rules.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base URL: %w", utils.ErrConfigValidation, err)
	}
	for name, sel := range map[string]string{
		"topic":   rules.TopicSelector,
		"title":   rules.TitleSelector,
		"link":    rules.LinkSelector,
		"author":  rules.AuthorSelector,
		"content": rules.ContentSelector,
	} {
		if sel == "" {
			return nil, utils.WrapErrorf(utils.ErrConfigValidation, "%s selector is empty", name)
		}
	}
	compiled, err := utils.CompileNamedPatterns(map[string]string{
		"noise":    rules.NoisePattern,
		"price":    rules.PricePattern,
		"currency": rules.CurrencyPattern,
	})
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		rules:    rules,
		base:     base,
		noise:    compiled["noise"],
		price:    compiled["price"],
		currency: compiled["currency"],
	}
	if e.price == nil || e.currency == nil {
		return nil, utils.WrapErrorf(utils.ErrConfigValidation, "price and currency patterns are required")
	}
	if e.price.NumSubexp() < 1 {
		return nil, utils.WrapErrorf(utils.ErrConfigValidation, "price pattern needs at least 1 capture group")
	}
	if e.currency.NumSubexp() < 2 {
		return nil, utils.WrapErrorf(utils.ErrConfigValidation, "currency pattern needs at least 2 capture groups")
	}
	return e, nil
}

// Rules returns the rules the extractor was built from
func (e *Extractor) Rules() Rules {
	return e.rules
}
