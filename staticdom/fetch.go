package staticdom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domlens/guard"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (compatible; DomLens/1.0)"
	defaultMaxBodyBytes = 10 * 1024 * 1024 // 10 MB
)

// FetcherConfig configures an HTTP document fetcher. Zero values select
// sensible defaults; private hosts are allowed unless DenyPrivateHosts is
// set, because inspecting local dev servers is the common case.
type FetcherConfig struct {
	Client           *http.Client
	UserAgent        string
	MaxBodyBytes     int64
	DenyPrivateHosts bool
	Logger           *slog.Logger
}

// Fetcher retrieves pages and same-origin frames over HTTP and parses them
// into DOM trees.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	allowPrivate bool
	logger       *slog.Logger
}

// NewFetcher creates a Fetcher from cfg.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		client:       cfg.Client,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		allowPrivate: !cfg.DenyPrivateHosts,
		logger:       cfg.Logger,
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 30 * time.Second}
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.maxBodyBytes <= 0 {
		f.maxBodyBytes = defaultMaxBodyBytes
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch retrieves pageURL and parses the response body as HTML. The body is
// capped at MaxBodyBytes; html.Parse tolerates the truncation.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	if err := guard.URL(pageURL, f.allowPrivate); err != nil {
		return nil, fmt.Errorf("staticdom: refusing to fetch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("staticdom: creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("staticdom: fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("staticdom: fetching %s: status %d", pageURL, resp.StatusCode)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("staticdom: parsing %s: %w", pageURL, err)
	}

	f.logger.Debug("page fetched",
		"url", pageURL,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())
	return root, nil
}
