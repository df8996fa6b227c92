package lens

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/guard"
	"github.com/hazyhaar/domlens/lens/internal/browser"
	"github.com/hazyhaar/domlens/overlay"
	"github.com/hazyhaar/domlens/staticdom"
)

// Session kinds.
const (
	KindLive   = "live"
	KindStatic = "static"
)

// Session binds one inspected page to the engine operating on it. Live
// sessions hold a browser tab, static ones a parsed document tree; every
// operation goes through the same overlay engine either way.
//
// Operations serialize on an internal mutex. The document set is
// re-enumerated by the provider on each operation, so frames that appear
// between calls are picked up and stale ones are skipped.
type Session struct {
	ID        string
	Kind      string
	PageURL   string
	CreatedAt time.Time

	engine     *overlay.Engine
	provider   dom.Provider
	stylesheet string

	tab    *browser.Tab
	static *staticdom.Provider

	mu      sync.Mutex
	classes map[string]int
}

func newSession(id, kind, pageURL string, provider dom.Provider, stylesheet string, logger *slog.Logger) *Session {
	return &Session{
		ID:         id,
		Kind:       kind,
		PageURL:    pageURL,
		CreatedAt:  time.Now().UTC(),
		engine:     overlay.New(provider, overlay.WithLogger(logger)),
		provider:   provider,
		stylesheet: stylesheet,
		classes:    make(map[string]int),
	}
}

// Add runs the ruleset as an add pass and returns how many overlays were
// created across all reachable documents.
func (s *Session) Add(ctx context.Context, rs *Ruleset) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.engine.Add(ctx, rs.Targets(), rs.AddOptions(s.stylesheet))
	if n > 0 {
		s.classes[rs.Class] += n
	}
	return n, err
}

// Remove deletes every overlay carrying the marker class and returns the
// count. Removing a class that was never added is not an error.
func (s *Session) Remove(ctx context.Context, class string) (int, error) {
	if err := guard.MarkerClass(class); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.engine.Remove(ctx, class)
	if err == nil {
		delete(s.classes, class)
	}
	return n, err
}

// Inspect runs the ruleset read-only and reports every element an add pass
// would consider, including invisible ones.
func (s *Session) Inspect(ctx context.Context, rs *Ruleset, maxSnippet int) ([]overlay.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engine.Inspect(ctx, rs.Targets(), rs.InspectOptions(maxSnippet))
}

// Documents lists the URLs of the currently reachable documents: the page
// itself plus its same-origin iframes.
func (s *Session) Documents(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.provider.Documents(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(docs))
	for _, d := range docs {
		urls = append(urls, d.URL())
	}
	return urls, nil
}

// Screenshot captures the page as PNG. Static sessions have no renderer
// and report dom.ErrNotSupported.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if s.tab == nil {
		return nil, fmt.Errorf("lens: screenshot of %s session: %w", s.Kind, dom.ErrNotSupported)
	}
	return s.tab.Screenshot(ctx, fullPage)
}

// Render writes the current page markup, overlays included. Static sessions
// serialize the annotated tree; live sessions dump the browser's DOM.
func (s *Session) Render(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.static != nil {
		return s.static.Render(w)
	}
	data, err := s.tab.HTML(ctx)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Title returns the page title, best effort.
func (s *Session) Title() string {
	if s.static != nil {
		return s.static.Title()
	}
	info, err := s.tab.Page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.Title
}

// Classes lists the marker classes added through this session, sorted, with
// the overlay count recorded at add time.
func (s *Session) Classes() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.classes))
	for class, n := range s.classes {
		out[class] = n
	}
	return out
}

// ClassNames lists the marker classes added through this session, sorted.
func (s *Session) ClassNames() []string {
	classes := s.Classes()
	names := make([]string, 0, len(classes))
	for class := range classes {
		names = append(names, class)
	}
	sort.Strings(names)
	return names
}

// OverlayCount reports how many overlays the session created under the
// class, as recorded at add time.
func (s *Session) OverlayCount(class string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.classes[class]
}

// Close releases the session's page. Closing a static session is a no-op.
func (s *Session) Close() error {
	if s.tab != nil {
		return s.tab.Close()
	}
	return nil
}
