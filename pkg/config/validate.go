package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"forum-scraper/pkg/utils"
)

// Headers that net/http manages itself. Setting Accept-Encoding by hand would
// disable transparent gzip decoding; Host and Connection are ignored in Header.
var transportManagedHeaders = []string{"Accept-Encoding", "Host", "Connection"}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// BaseURL
	if c.BaseURL == "" {
		warnings = append(warnings, fmt.Sprintf("base_url is empty, defaulting to '%s'", DefaultBaseURL))
		c.BaseURL = DefaultBaseURL
	}
	parsedBase, parseErr := url.Parse(c.BaseURL)
	if parseErr != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return warnings, fmt.Errorf("%w: base_url '%s' must be an absolute http(s) URL", utils.ErrConfigValidation, c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	// ForumPath
	if c.ForumPath == "" {
		warnings = append(warnings, fmt.Sprintf("forum_path is empty, defaulting to '%s'", DefaultForumPath))
		c.ForumPath = DefaultForumPath
	} else if c.ForumPath[0] != '/' {
		c.ForumPath = "/" + c.ForumPath
	}

	// PageSize
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}

	// Page range
	if c.PageFrom == 0 && c.PageTo == 0 {
		warnings = append(warnings, "page_from/page_to not set, crawling page 1 only")
		c.PageFrom, c.PageTo = 1, 1
	}
	if rangeErr := c.PageRange().Validate(); rangeErr != nil {
		return warnings, fmt.Errorf("%w: %v", utils.ErrConfigValidation, rangeErr)
	}

	// MaxRequests
	if c.MaxRequests <= 0 {
		warnings = append(warnings, "max_requests should be > 0, defaulting to 2")
		c.MaxRequests = 2
	}

	// FetchTimeout
	if c.FetchTimeout < 0 {
		warnings = append(warnings, "fetch_timeout cannot be negative, defaulting to 30s")
		c.FetchTimeout = 0
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 30 * time.Second
	}

	// MaxBodyBytes
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}

	// Headers
	if c.Headers == nil {
		c.Headers = DefaultHeaders(c.BaseURL)
	}
	for _, name := range transportManagedHeaders {
		for key := range c.Headers {
			if http.CanonicalHeaderKey(key) == name {
				warnings = append(warnings, fmt.Sprintf("header '%s' is managed by the HTTP transport, ignoring it", key))
				delete(c.Headers, key)
			}
		}
	}

	c.applySelectorDefaults()

	// Patterns
	c.applyPatternDefaults()
	if _, compileErr := utils.CompileNamedPatterns(map[string]string{
		"noise":    c.Patterns.Noise,
		"price":    c.Patterns.Price,
		"currency": c.Patterns.Currency,
	}); compileErr != nil {
		return warnings, compileErr
	}

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	sinkWarnings, sinkErr := c.Sink.Validate()
	warnings = append(warnings, sinkWarnings...)
	if sinkErr != nil {
		return warnings, sinkErr
	}

	return warnings, nil
}

func (c *AppConfig) applySelectorDefaults() {
	s := &c.Selectors
	if s.Topic == "" {
		s.Topic = DefaultTopicSelector
	}
	if s.Title == "" {
		s.Title = DefaultTitleSelector
	}
	if s.Link == "" {
		s.Link = DefaultLinkSelector
	}
	if s.Author == "" {
		s.Author = DefaultAuthorSelector
	}
	if s.Content == "" {
		s.Content = DefaultContentSelector
	}
}

func (c *AppConfig) applyPatternDefaults() {
	p := &c.Patterns
	if p.Noise == "" {
		p.Noise = DefaultNoisePattern
	}
	if p.Price == "" {
		p.Price = DefaultPricePattern
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrencyPattern
	}
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		// Every fetch goes to the same host; keep one idle connection per gate permit
		h.MaxIdleConnsPerHost = c.MaxRequests
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

// Validate checks SinkConfig fields and applies defaults.
func (s *SinkConfig) Validate() (warnings []string, err error) {
	if s.Type == "" {
		warnings = append(warnings, "sink.type is empty, defaulting to 'jsonl'")
		s.Type = SinkJSONL
	}
	s.Type = strings.ToLower(s.Type)

	if s.Collection == "" {
		s.Collection = DefaultCollection
	}
	if utils.SanitizeName(s.Collection) != s.Collection {
		return warnings, fmt.Errorf("%w: sink.collection '%s' may only contain letters, digits, '.', '_' and '-'", utils.ErrConfigValidation, s.Collection)
	}

	switch s.Type {
	case SinkPostgres:
		if s.DSN == "" {
			return warnings, fmt.Errorf("%w: sink.dsn is required for postgres", utils.ErrConfigValidation)
		}
		if s.BatchSize <= 0 {
			s.BatchSize = 200
		}
		if s.MaxConns <= 0 {
			s.MaxConns = 2
		}
	case SinkSQLite:
		if s.Path == "" {
			warnings = append(warnings, "sink.path is empty, defaulting to './forum.db'")
			s.Path = "./forum.db"
		}
	case SinkBadger:
		if s.Path == "" {
			warnings = append(warnings, "sink.path is empty, defaulting to './forum_state'")
			s.Path = "./forum_state"
		}
	case SinkJSONL:
		if s.Path == "" {
			warnings = append(warnings, "sink.path is empty, defaulting to './posts.jsonl'")
			s.Path = "./posts.jsonl"
		}
	default:
		return warnings, fmt.Errorf("%w: unknown sink.type '%s' (want postgres, sqlite, badger or jsonl)", utils.ErrConfigValidation, s.Type)
	}
	return warnings, nil
}
