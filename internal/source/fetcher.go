// Package source downloads the weekly price spreadsheet.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fuelmetrics/fuelmetrics-api/internal/config"
)

// minBodyBytes rejects error pages served with a 200 status.
const minBodyBytes = 1024

// ErrNoCandidate means every candidate URL failed and no cached copy exists.
var ErrNoCandidate = errors.New("no candidate URL returned a spreadsheet")

// HTTPFetcher tries a list of candidate URLs in order and returns the first
// response that looks like a spreadsheet.
type HTTPFetcher struct {
	client    *http.Client
	baseURL   string
	names     []string
	userAgent string
	timeout   time.Duration
	maxBytes  int64
	cachePath string
	now       func() time.Time
}

// Option customises an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the default HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithCache keeps a copy of the last good download at path and serves it
// when every candidate fails.
func WithCache(path string) Option {
	return func(f *HTTPFetcher) { f.cachePath = path }
}

// NewHTTPFetcher builds a fetcher from the source configuration. maxBytes
// caps the accepted body size; 0 means unlimited.
func NewHTTPFetcher(cfg config.SourceConfig, maxBytes int64, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		names:     cfg.FileNames,
		userAgent: cfg.UserAgent,
		timeout:   cfg.FetchTimeout,
		maxBytes:  maxBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Candidates returns the URLs tried by Fetch, with {year} expanded.
func (f *HTTPFetcher) Candidates() []string {
	year := strconv.Itoa(f.now().Year())
	urls := make([]string, 0, len(f.names))
	for _, name := range f.names {
		name = strings.ReplaceAll(name, "{year}", year)
		urls = append(urls, f.baseURL+"/"+strings.TrimLeft(name, "/"))
	}
	return urls
}

// Fetch downloads the first acceptable candidate. It returns the bytes and
// the URL they came from.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, string, error) {
	logger := slog.Default().With(slog.String("service", "anp-fetcher"))

	var lastErr error
	for _, url := range f.Candidates() {
		body, err := f.get(ctx, url)
		if err != nil {
			lastErr = err
			logger.Warn("candidate rejected", slog.String("url", url), slog.String("error", err.Error()))
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			continue
		}

		logger.Info("spreadsheet downloaded", slog.String("url", url), slog.Int("bytes", len(body)))
		f.writeCache(logger, body)
		return body, url, nil
	}

	if body, ok := f.readCache(); ok {
		logger.Warn("all candidates failed, serving cached copy",
			slog.String("path", f.cachePath),
			slog.Any("last_error", lastErr))
		return body, "cache:" + f.cachePath, nil
	}

	if lastErr == nil {
		return nil, "", ErrNoCandidate
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoCandidate, lastErr)
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil && strings.HasPrefix(mediaType, "text/html") {
			return nil, fmt.Errorf("unexpected content type %q", mediaType)
		}
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", f.maxBytes)
	}
	if len(body) < minBodyBytes {
		return nil, fmt.Errorf("body too small: %d bytes", len(body))
	}
	return body, nil
}

func (f *HTTPFetcher) writeCache(logger *slog.Logger, body []byte) {
	if f.cachePath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(f.cachePath), 0o755); err != nil {
		logger.Warn("cache directory unavailable", slog.String("error", err.Error()))
		return
	}
	tmp := f.cachePath + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		logger.Warn("failed to write cache", slog.String("error", err.Error()))
		return
	}
	if err := os.Rename(tmp, f.cachePath); err != nil {
		logger.Warn("failed to replace cache", slog.String("error", err.Error()))
	}
}

func (f *HTTPFetcher) readCache() ([]byte, bool) {
	if f.cachePath == "" {
		return nil, false
	}
	body, err := os.ReadFile(f.cachePath)
	if err != nil || len(body) == 0 {
		return nil, false
	}
	return body, true
}

// FileFetcher reads the spreadsheet from a local path.
type FileFetcher struct {
	Path string
}

// Fetch reads the whole file.
func (f FileFetcher) Fetch(_ context.Context) ([]byte, string, error) {
	body, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	return body, "file:" + f.Path, nil
}
