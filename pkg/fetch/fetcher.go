package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"forum-scraper/pkg/utils"
)

// maxDrainBytes bounds how much of an unread body is discarded so the
// connection can be reused; anything longer is closed instead.
const maxDrainBytes = 64 << 10

// HTTPFetcher retrieves one document body. Implementations must not retry.
type HTTPFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options configures a Fetcher
type Options struct {
	Headers      map[string]string // Applied to every request
	Timeout      time.Duration     // Per-fetch bound; 0 disables it
	MaxBodyBytes int64             // 0 means unlimited
}

// Fetcher issues single GET requests over a shared http.Client.
// There is no retry: every failure is reported once and the caller decides.
type Fetcher struct {
	client *http.Client
	opts   Options
	log    *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, opts Options, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client: client,
		opts:   opts,
		log:    log,
	}
}

// Fetch performs one GET for rawURL and returns the body decoded to UTF-8.
// Non-2xx statuses and transport failures are both returned wrapped in utils.ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	reqLog := f.log.WithField("url", rawURL)

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: creating request for '%s': %w", utils.ErrFetch, utils.ErrRequestCreation, rawURL, err)
	}
	for name, value := range f.opts.Headers {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		reqLog.WithField("category", utils.CategorizeError(err)).Debugf("Transport error: %v", err)
		return nil, fmt.Errorf("%w: GET '%s': %w", utils.ErrFetch, rawURL, err)
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		resp.Body.Close()
	}()

	resLog := reqLog.WithFields(logrus.Fields{"status_code": resp.StatusCode, "duration": time.Since(start).String()})
	if statusErr := classifyStatus(resp); statusErr != nil {
		resLog.Debug("Non-2xx response")
		return nil, fmt.Errorf("%w: GET '%s': %w", utils.ErrFetch, rawURL, statusErr)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: GET '%s': %w", utils.ErrFetch, rawURL, err)
	}
	resLog.WithField("bytes", len(body)).Debug("Fetched")
	return body, nil
}

// classifyStatus maps a non-2xx status onto the HTTP sentinel errors.
func classifyStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500:
		return fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, code, resp.Status)
	case code >= 400:
		return fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, code, resp.Status)
	default:
		return fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, code, resp.Status)
	}
}

// readBody reads at most MaxBodyBytes and transcodes to UTF-8 using the
// Content-Type charset (or a <meta> sniff when the header has none).
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if f.opts.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}
	if f.opts.MaxBodyBytes > 0 && int64(len(raw)) > f.opts.MaxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", utils.ErrResponseBodyRead, f.opts.MaxBodyBytes)
	}

	decoded, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: detecting charset: %w", utils.ErrResponseBodyRead, err)
	}
	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding body: %w", utils.ErrResponseBodyRead, err)
	}
	return body, nil
}
