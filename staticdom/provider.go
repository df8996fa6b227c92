// Package staticdom implements the document provider over parsed HTML.
// No browser and no JS: selection runs on the parsed tree, visibility
// derives from inline styles and attributes, and geometry is synthetic.
// It backs the static inspection mode and every test that must run
// without Chrome.
//
// Annotations mutate the parsed tree; Render serializes the annotated page
// back to HTML so the result can be opened in a browser or archived.
package staticdom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/domlens/dom"
)

var iframeSel = cascadia.MustCompile("iframe")

// Provider is a dom.Provider over one parsed page. The document set is
// recomputed on every Documents call from the current tree; fetched iframe
// documents are parsed once and kept, so annotations inserted into them
// survive until the matching remove pass.
type Provider struct {
	pageURL string
	base    *url.URL
	fetcher *Fetcher
	layout  LayoutFunc
	logger  *slog.Logger

	main *document

	mu     sync.Mutex
	frames map[string]*document
}

// Option configures a Provider.
type Option func(*Provider)

// WithURL sets the page URL, used as the main document identity and the
// base for resolving iframe sources.
func WithURL(pageURL string) Option {
	return func(p *Provider) { p.pageURL = pageURL }
}

// WithFetcher enables same-origin iframe loading. Without it, iframes
// yield no documents.
func WithFetcher(f *Fetcher) Option {
	return func(p *Provider) { p.fetcher = f }
}

// WithLayout replaces the synthetic geometry function.
func WithLayout(layout LayoutFunc) Option {
	return func(p *Provider) {
		if layout != nil {
			p.layout = layout
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Parse builds a Provider from an HTML stream.
func Parse(r io.Reader, opts ...Option) (*Provider, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("staticdom: parse: %w", err)
	}

	p := &Provider{
		pageURL: "about:blank",
		layout:  defaultLayout,
		logger:  slog.Default(),
		frames:  make(map[string]*document),
	}
	for _, o := range opts {
		o(p)
	}
	if base, err := url.Parse(p.pageURL); err == nil && base.Host != "" {
		p.base = base
	}
	p.main = newDocument(p.pageURL, root, p.layout, p.logger)
	return p, nil
}

// ParseString builds a Provider from an HTML string.
func ParseString(s string, opts ...Option) (*Provider, error) {
	return Parse(strings.NewReader(s), opts...)
}

// FetchPage fetches a page over HTTP and builds a Provider around it, with
// the fetcher wired in for same-origin iframes.
func FetchPage(ctx context.Context, f *Fetcher, pageURL string, opts ...Option) (*Provider, error) {
	root, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		pageURL: pageURL,
		fetcher: f,
		layout:  defaultLayout,
		logger:  slog.Default(),
		frames:  make(map[string]*document),
	}
	for _, o := range opts {
		o(p)
	}
	if base, err := url.Parse(p.pageURL); err == nil && base.Host != "" {
		p.base = base
	}
	p.main = newDocument(p.pageURL, root, p.layout, p.logger)
	return p, nil
}

// Documents returns the main document plus the document of every iframe
// whose resolved src is same-origin with the page. Cross-origin frames,
// unresolvable sources, and fetch failures are skipped silently apart from
// a debug log line.
func (p *Provider) Documents(ctx context.Context) ([]dom.Document, error) {
	docs := []dom.Document{p.main}
	if p.fetcher == nil {
		return docs, nil
	}

	for _, node := range iframeSel.MatchAll(p.main.root) {
		src := nodeAttr(node, "src")
		if src == "" {
			continue
		}
		frameURL, ok := p.resolveSameOrigin(src)
		if !ok {
			p.logger.Debug("iframe skipped", "src", src, "reason", "cross-origin or unresolvable")
			continue
		}
		doc, err := p.frameDocument(ctx, frameURL)
		if err != nil {
			p.logger.Debug("iframe skipped", "url", frameURL, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// frameDocument returns the cached document for a frame URL, fetching and
// parsing it on first use. Keeping the parsed tree across calls is what
// lets a later remove pass find the overlays an earlier add pass inserted.
func (p *Provider) frameDocument(ctx context.Context, frameURL string) (*document, error) {
	p.mu.Lock()
	if d, ok := p.frames[frameURL]; ok {
		p.mu.Unlock()
		return d, nil
	}
	p.mu.Unlock()

	root, err := p.fetcher.Fetch(ctx, frameURL)
	if err != nil {
		return nil, err
	}
	d := newDocument(frameURL, root, p.layout, p.logger)

	p.mu.Lock()
	p.frames[frameURL] = d
	p.mu.Unlock()
	return d, nil
}

// resolveSameOrigin resolves an iframe src against the page URL and reports
// whether the result shares the page's origin (scheme + host + port).
func (p *Provider) resolveSameOrigin(src string) (string, bool) {
	if p.base == nil {
		return "", false
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	resolved := p.base.ResolveReference(ref)
	if resolved.Scheme != p.base.Scheme || resolved.Host != p.base.Host {
		return "", false
	}
	return resolved.String(), true
}

// Render serializes the main document, annotations included. When
// draggable overlays were inserted, the drag script is carried inline so
// the annotated file behaves when opened in a browser.
func (p *Provider) Render(w io.Writer) error {
	return p.main.render(w)
}

// Title returns the main document's title, or the empty string.
func (p *Provider) Title() string {
	return p.main.title()
}

// URL returns the page URL.
func (p *Provider) URL() string {
	return p.pageURL
}
