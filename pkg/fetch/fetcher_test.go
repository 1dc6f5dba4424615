package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"forum-scraper/pkg/config"
	"forum-scraper/pkg/utils"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// testClient returns an http.Client suitable for testing
func testClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func testFetcher(opts Options) *Fetcher {
	return NewFetcher(testClient(), opts, testLogger())
}

// mockServer creates an httptest.Server that always answers with status and body.
// Returns the server and an atomic counter tracking request attempts.
func mockServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	attemptCount := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server, attemptCount
}

func TestFetch_Success(t *testing.T) {
	server, attempts := mockServer(t, http.StatusOK, "<html>ok</html>")

	body, err := testFetcher(Options{}).Fetch(context.Background(), server.URL)

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("unexpected body: %q", body)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetch_AppliesHeaders(t *testing.T) {
	var gotUA, gotLang, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotReferer = r.Header.Get("Referer")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	headers := config.DefaultHeaders("http://forum.overclockers.ua")
	_, err := testFetcher(Options{Headers: headers}).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotUA != headers["User-Agent"] {
		t.Errorf("User-Agent = %q, want %q", gotUA, headers["User-Agent"])
	}
	if gotLang != headers["Accept-Language"] {
		t.Errorf("Accept-Language = %q, want %q", gotLang, headers["Accept-Language"])
	}
	if gotReferer != "http://forum.overclockers.ua" {
		t.Errorf("Referer = %q", gotReferer)
	}
}

func TestFetch_NonSuccessStatus_NoRetry(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"404 Not Found", http.StatusNotFound, utils.ErrClientHTTPError},
		{"429 Too Many Requests", http.StatusTooManyRequests, utils.ErrClientHTTPError},
		{"500 Internal Server Error", http.StatusInternalServerError, utils.ErrServerHTTPError},
		{"503 Service Unavailable", http.StatusServiceUnavailable, utils.ErrServerHTTPError},
		{"304 Not Modified", http.StatusNotModified, utils.ErrOtherHTTPError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, attempts := mockServer(t, tt.status, "")

			body, err := testFetcher(Options{}).Fetch(context.Background(), server.URL)

			if err == nil {
				t.Fatal("expected error for non-2xx status")
			}
			if body != nil {
				t.Errorf("expected nil body, got %q", body)
			}
			if !errors.Is(err, utils.ErrFetch) {
				t.Errorf("expected ErrFetch, got: %v", err)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got: %v", tt.sentinel, err)
			}
			if attempts.Load() != 1 {
				t.Errorf("expected exactly 1 attempt (no retry), got %d", attempts.Load())
			}
		})
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := server.URL
	server.Close()

	_, err := testFetcher(Options{}).Fetch(context.Background(), deadURL)

	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if !errors.Is(err, utils.ErrFetch) {
		t.Errorf("expected ErrFetch, got: %v", err)
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := testFetcher(Options{}).Fetch(context.Background(), "http://[::1]:namedport")
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
	if !errors.Is(err, utils.ErrFetch) || !errors.Is(err, utils.ErrRequestCreation) {
		t.Errorf("expected ErrFetch wrapping ErrRequestCreation, got: %v", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	start := time.Now()
	_, err := testFetcher(Options{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), server.URL)

	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, utils.ErrFetch) {
		t.Errorf("expected ErrFetch, got: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not applied, took %v", elapsed)
	}
}

func TestFetch_BodyTooLarge(t *testing.T) {
	server, _ := mockServer(t, http.StatusOK, strings.Repeat("x", 2048))

	_, err := testFetcher(Options{MaxBodyBytes: 1024}).Fetch(context.Background(), server.URL)

	if err == nil {
		t.Fatal("expected error for oversized body")
	}
	if !errors.Is(err, utils.ErrResponseBodyRead) {
		t.Errorf("expected ErrResponseBodyRead, got: %v", err)
	}
}

// endlessServer answers with status and then streams filler until the client goes away.
func endlessServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	chunk := []byte(strings.Repeat("x", 32<<10))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		flusher, _ := w.(http.Flusher)
		for {
			select {
			case <-r.Context().Done():
				return
			default:
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch_UnreadBodyIsNotDrainedToTimeout(t *testing.T) {
	tests := []struct {
		name   string
		status int
		opts   Options
	}{
		{"OversizedBody", http.StatusOK, Options{Timeout: 10 * time.Second, MaxBodyBytes: 1024}},
		{"NonSuccessBody", http.StatusInternalServerError, Options{Timeout: 10 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := endlessServer(t, tt.status)

			start := time.Now()
			_, err := testFetcher(tt.opts).Fetch(context.Background(), server.URL)
			elapsed := time.Since(start)

			if !errors.Is(err, utils.ErrFetch) {
				t.Fatalf("expected ErrFetch, got: %v", err)
			}
			if elapsed > 3*time.Second {
				t.Errorf("Fetch returned after %v; the unread body was drained until the timeout", elapsed)
			}
		})
	}
}

func TestFetch_DecodesCharset(t *testing.T) {
	// "Привет" in windows-1251
	cp1251 := []byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		w.WriteHeader(http.StatusOK)
		w.Write(cp1251)
	}))
	defer server.Close()

	body, err := testFetcher(Options{}).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "Привет" {
		t.Errorf("body = %q, want %q", body, "Привет")
	}
}

func TestNewClient_AppliesSettings(t *testing.T) {
	cfg := config.AppConfig{}
	if _, err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	client := NewClient(cfg.HTTPClientSettings, testLogger())

	if client.Timeout != cfg.HTTPClientSettings.Timeout {
		t.Errorf("Timeout = %v, want %v", client.Timeout, cfg.HTTPClientSettings.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConnsPerHost != cfg.HTTPClientSettings.MaxIdleConnsPerHost {
		t.Errorf("MaxIdleConnsPerHost = %d, want %d", transport.MaxIdleConnsPerHost, cfg.HTTPClientSettings.MaxIdleConnsPerHost)
	}
}
