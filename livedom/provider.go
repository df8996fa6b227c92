// Package livedom implements the document provider over a live Chrome page
// driven through Rod. Selection, computed styles and geometry come from the
// real rendering engine via CDP; annotations are evaluated in page context
// with the embedded primitives from the assets package.
package livedom

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domlens/dom"
)

// Provider is a dom.Provider over one Rod page and its same-origin iframes.
type Provider struct {
	page    *rod.Page
	pageURL string
	logger  *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New wraps an already-navigated Rod page.
func New(page *rod.Page, pageURL string, opts ...Option) *Provider {
	p := &Provider{
		page:    page,
		pageURL: pageURL,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Documents returns the main document plus one document per same-origin
// iframe. The set is recomputed on every call, so frames added or removed
// by page scripts are picked up. Cross-origin frames, frames without a
// resolvable src, and frames Rod cannot attach to are skipped with a debug
// log line. Returned documents are bound to ctx.
func (p *Provider) Documents(ctx context.Context) ([]dom.Document, error) {
	page := p.page.Context(ctx)

	mainURL := p.pageURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		mainURL = info.URL
	}
	docs := []dom.Document{&document{page: page, url: mainURL, logger: p.logger}}

	base, err := url.Parse(mainURL)
	if err != nil || base.Host == "" {
		// No usable base origin, so no frame can be proven same-origin.
		return docs, nil
	}

	frames, err := page.Elements("iframe")
	if err != nil {
		return nil, fmt.Errorf("livedom: enumerate iframes: %w", err)
	}
	for _, el := range frames {
		src, err := el.Attribute("src")
		if err != nil || src == nil || *src == "" {
			continue
		}
		frameURL, ok := resolveSameOrigin(base, *src)
		if !ok {
			p.logger.Debug("iframe skipped", "src", *src, "reason", "cross-origin or unresolvable")
			continue
		}
		framePage, err := el.Frame()
		if err != nil {
			p.logger.Debug("iframe skipped", "url", frameURL, "error", err)
			continue
		}
		docs = append(docs, &document{page: framePage.Context(ctx), url: frameURL, logger: p.logger})
	}
	return docs, nil
}

// URL returns the page URL the provider was created with.
func (p *Provider) URL() string {
	return p.pageURL
}
