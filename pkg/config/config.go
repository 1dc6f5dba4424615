package config

import (
	"time"

	"forum-scraper/pkg/models"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	BaseURL            string            `yaml:"base_url"`             // Scheme + host of the forum, also used to resolve relative topic links
	ForumPath          string            `yaml:"forum_path"`           // Listing path including the forum id query, e.g. /viewforum.php?f=26
	PageSize           int               `yaml:"page_size,omitempty"`  // Topics per listing page; stride of the "start" offset
	PageFrom           int               `yaml:"page_from"`            // First listing page (1-based, inclusive)
	PageTo             int               `yaml:"page_to"`              // Last listing page (inclusive)
	MaxRequests        int               `yaml:"max_requests"`         // Concurrency gate size shared by listing and detail fetches
	FetchTimeout       time.Duration     `yaml:"fetch_timeout,omitempty"`
	MaxBodyBytes       int64             `yaml:"max_body_bytes,omitempty"`
	Headers            map[string]string `yaml:"headers,omitempty"` // Sent on every request; nil means DefaultHeaders
	Selectors          SelectorConfig    `yaml:"selectors,omitempty"`
	Patterns           PatternConfig     `yaml:"patterns,omitempty"`
	HTTPClientSettings HTTPClientConfig  `yaml:"http_client_settings,omitempty"`
	Sink               SinkConfig        `yaml:"sink"`
}

// SelectorConfig holds the CSS selectors used to pull fields out of listing and detail pages
type SelectorConfig struct {
	Topic   string `yaml:"topic,omitempty"`   // One node per topic entry on a listing page
	Title   string `yaml:"title,omitempty"`   // Relative to Topic
	Link    string `yaml:"link,omitempty"`    // Relative to Topic; first match's href is the detail URL
	Author  string `yaml:"author,omitempty"`  // Relative to Topic
	Content string `yaml:"content,omitempty"` // Detail page body nodes
}

// PatternConfig holds the regular expressions applied to detail page text
type PatternConfig struct {
	Noise    string `yaml:"noise,omitempty"`    // Removed from the text before matching
	Price    string `yaml:"price,omitempty"`    // Group 1 of the first match is the amount
	Currency string `yaml:"currency,omitempty"` // Group 2 of the second match is the currency token
}

// SinkConfig selects and configures the persistence backend
type SinkConfig struct {
	Type       string `yaml:"type"`                 // postgres, sqlite, badger or jsonl
	DSN        string `yaml:"dsn,omitempty"`        // postgres connection string
	Path       string `yaml:"path,omitempty"`       // sqlite file, badger directory or jsonl file
	Collection string `yaml:"collection,omitempty"` // Table / collection name
	BatchSize  int    `yaml:"batch_size,omitempty"` // postgres insert batch size
	MaxConns   int    `yaml:"max_conns,omitempty"`  // postgres pool size
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Sink types
const (
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
	SinkBadger   = "badger"
	SinkJSONL    = "jsonl"
)

// Defaults matching the overclockers.ua trade board layout
const (
	DefaultBaseURL    = "http://forum.overclockers.ua"
	DefaultForumPath  = "/viewforum.php?f=26"
	DefaultPageSize   = 40
	DefaultCollection = "post"

	DefaultTopicSelector   = "ul.topiclist.topics > li"
	DefaultTitleSelector   = "a.topictitle"
	DefaultLinkSelector    = "a"
	DefaultAuthorSelector  = "dd.author a.username"
	DefaultContentSelector = "div.content"

	DefaultNoisePattern    = `(_)+`
	DefaultPricePattern    = `\b(\d+(\.\d{2})?)\b(?:грн|уе|уо|у\.е|у\.о)`
	DefaultCurrencyPattern = `\b(?:\d+(\.\d{2})?)\b(грн|[₴£$€]|EUR|USD|GPB|PLN|UAH)`
)

// DefaultHeaders returns the browser-like header set sent with every request.
// Accept-Encoding, Host and Connection are left to net/http.
func DefaultHeaders(baseURL string) map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "ru-RU,ru;q=0.8,en-US;q=0.6,en;q=0.4",
		"Cache-Control":             "max-age=0",
		"Referer":                   baseURL,
		"Save-Data":                 "on",
		"Upgrade-Insecure-Requests": "1",
		"User-Agent": "Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/54.0.2840.99 Safari/537.36 OPR/41.0.2353.69",
	}
}

// PageRange returns the configured inclusive page range
func (c *AppConfig) PageRange() models.PageRange {
	return models.PageRange{From: c.PageFrom, To: c.PageTo}
}
