// Package lens orchestrates DOM overlay sessions: opening pages live in
// Chrome or statically over HTTP, marking them with rulesets, and turning
// the matches into reports and artifacts. The CLI and the MCP server are
// both thin surfaces over this package.
package lens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazyhaar/domlens/a11y"
	"github.com/hazyhaar/domlens/guard"
	"github.com/hazyhaar/domlens/idgen"
	"github.com/hazyhaar/domlens/lens/internal/browser"
	"github.com/hazyhaar/domlens/lens/internal/config"
	"github.com/hazyhaar/domlens/livedom"
	"github.com/hazyhaar/domlens/report"
	"github.com/hazyhaar/domlens/staticdom"
)

// Lens wires the machinery shared by every surface: the browser manager,
// the static fetcher, the session registry, and the report writer. The
// browser is launched lazily on the first live session.
type Lens struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *Registry
	fetcher  *staticdom.Fetcher
	writer   *report.Writer

	newSessionID idgen.Generator
	newShotName  idgen.Generator
	stylesheet   string

	mu      sync.Mutex
	manager *browser.Manager
}

// Option configures a Lens.
type Option func(*Lens)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lens) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSessionIDs sets the generator for session IDs.
func WithSessionIDs(gen idgen.Generator) Option {
	return func(l *Lens) {
		if gen != nil {
			l.newSessionID = gen
		}
	}
}

// New creates a Lens from a configuration. A nil configuration gets the
// defaults.
func New(cfg *Config, opts ...Option) *Lens {
	if cfg == nil {
		cfg = config.Default()
	}
	l := &Lens{
		cfg:          cfg,
		logger:       slog.Default(),
		registry:     NewRegistry(),
		newSessionID: idgen.Prefixed("sess_", idgen.NanoID(8)),
		newShotName:  idgen.Timestamped(idgen.Prefixed("shot_", idgen.NanoID(6))),
	}
	for _, o := range opts {
		o(l)
	}
	l.fetcher = staticdom.NewFetcher(staticdom.FetcherConfig{
		Client:           &http.Client{Timeout: cfg.Fetch.Timeout},
		UserAgent:        cfg.Fetch.UserAgent,
		MaxBodyBytes:     cfg.Fetch.MaxBodyBytes,
		DenyPrivateHosts: cfg.Fetch.DenyPrivateHosts,
		Logger:           l.logger,
	})
	l.writer = report.NewWriter(report.WithLogger(l.logger))
	return l
}

// Config returns the effective configuration.
func (l *Lens) Config() *Config { return l.cfg }

// SetStylesheet records the stylesheet href that add passes link into
// documents. Empty disables linking; overlays then rely on their inline
// position styles only.
func (l *Lens) SetStylesheet(href string) { l.stylesheet = href }

// Stylesheet returns the configured stylesheet href.
func (l *Lens) Stylesheet() string { return l.stylesheet }

// OpenLive opens the URL in a browser tab and registers a live session for
// it. The first call launches or connects Chrome per the browser
// configuration.
func (l *Lens) OpenLive(ctx context.Context, pageURL string) (*Session, error) {
	if err := guard.URL(pageURL, !l.cfg.Fetch.DenyPrivateHosts); err != nil {
		return nil, err
	}
	mgr, err := l.browserManager()
	if err != nil {
		return nil, err
	}
	tab, err := browser.OpenTab(ctx, mgr, pageURL)
	if err != nil {
		return nil, err
	}

	provider := livedom.New(tab.Page, pageURL, livedom.WithLogger(l.logger))
	s := newSession(l.newSessionID(), KindLive, pageURL, provider, l.stylesheet, l.logger)
	s.tab = tab
	l.registry.Put(s)
	l.logger.Info("session opened", "session", s.ID, "kind", s.Kind, "url", pageURL)
	return s, nil
}

// OpenStatic fetches the URL over HTTP, parses it, and registers a static
// session for the tree.
func (l *Lens) OpenStatic(ctx context.Context, pageURL string) (*Session, error) {
	provider, err := staticdom.FetchPage(ctx, l.fetcher, pageURL, staticdom.WithLogger(l.logger))
	if err != nil {
		return nil, err
	}

	s := newSession(l.newSessionID(), KindStatic, pageURL, provider, l.stylesheet, l.logger)
	s.static = provider
	l.registry.Put(s)
	l.logger.Info("session opened", "session", s.ID, "kind", s.Kind, "url", pageURL)
	return s, nil
}

// OpenStaticHTML parses markup from the reader and registers a static
// session for it. The name stands in for the page URL in logs and reports.
func (l *Lens) OpenStaticHTML(r io.Reader, name string) (*Session, error) {
	opts := []staticdom.Option{staticdom.WithLogger(l.logger)}
	if name != "" {
		opts = append(opts, staticdom.WithURL(name))
	}
	provider, err := staticdom.Parse(r, opts...)
	if err != nil {
		return nil, err
	}

	s := newSession(l.newSessionID(), KindStatic, provider.URL(), provider, l.stylesheet, l.logger)
	s.static = provider
	l.registry.Put(s)
	l.logger.Info("session opened", "session", s.ID, "kind", s.Kind, "url", s.PageURL)
	return s, nil
}

// Session returns the open session with the ID.
func (l *Lens) Session(id string) (*Session, error) {
	return l.registry.Get(id)
}

// Sessions returns the open sessions ordered by creation time.
func (l *Lens) Sessions() []*Session {
	return l.registry.List()
}

// CloseSession closes the session with the ID and removes it from the
// registry.
func (l *Lens) CloseSession(id string) error {
	s, err := l.registry.Remove(id)
	if err != nil {
		return err
	}
	err = s.Close()
	l.logger.Info("session closed", "session", id)
	return err
}

// Close shuts everything down: every open session, then the browser.
func (l *Lens) Close() error {
	var errs []error
	for _, s := range l.registry.List() {
		if err := l.CloseSession(s.ID); err != nil {
			errs = append(errs, err)
		}
	}

	l.mu.Lock()
	mgr := l.manager
	l.manager = nil
	l.mu.Unlock()
	if mgr != nil {
		if err := mgr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ruleset resolves a name against the configured rulesets first, then the
// built-in presets. Preset resolution applies the configured default class
// and draggable flag.
func (l *Lens) Ruleset(name string) (*Ruleset, error) {
	for _, rc := range l.cfg.Rulesets {
		if rc.Name == name {
			return CompileRuleset(rc)
		}
	}
	if _, ok := a11y.Lookup(name); ok {
		return PresetRuleset(name, l.cfg.Defaults.Class, l.cfg.Defaults.Draggable)
	}
	return nil, fmt.Errorf("lens: unknown ruleset or preset %q", name)
}

// DefaultRuleset resolves the configured default.
func (l *Lens) DefaultRuleset() (*Ruleset, error) {
	return l.Ruleset(l.cfg.Defaults.Preset)
}

// ResolveRuleset resolves a ruleset or preset name, falling back to the
// configured default, and applies per-request overrides on top.
func (l *Lens) ResolveRuleset(name, class string, draggable bool) (*Ruleset, error) {
	if name == "" {
		name = l.cfg.Defaults.Preset
	}
	rs, err := l.Ruleset(name)
	if err != nil {
		return nil, err
	}
	if class != "" {
		if err := guard.MarkerClass(class); err != nil {
			return nil, err
		}
		rs.Class = class
	}
	if draggable {
		rs.Draggable = true
	}
	return rs, nil
}

// WriteReport inspects the session with the ruleset and writes the Markdown
// report. Created counts reflect what this session previously added under
// the ruleset's class.
func (l *Lens) WriteReport(ctx context.Context, s *Session, rs *Ruleset, out io.Writer) error {
	matches, err := s.Inspect(ctx, rs, 0)
	if err != nil {
		return err
	}
	res := &report.Result{
		Title:       s.Title(),
		PageURL:     s.PageURL,
		Pass:        rs.Name,
		GeneratedAt: time.Now().UTC(),
		Created:     s.OverlayCount(rs.Class),
		Matches:     matches,
	}
	return l.writer.Markdown(out, res)
}

// OutputPath resolves a file name inside the configured output directory,
// rejecting traversal outside it.
func (l *Lens) OutputPath(name string) (string, error) {
	return guard.Path(l.cfg.Output.Dir, name)
}

// SaveScreenshot captures the session and writes the PNG into the output
// directory, returning the resolved path. An empty name gets a timestamped
// one, so repeated captures accumulate instead of overwriting.
func (l *Lens) SaveScreenshot(ctx context.Context, s *Session, name string, fullPage bool) (string, error) {
	if name == "" {
		name = l.newShotName() + ".png"
	}
	path, err := l.OutputPath(name)
	if err != nil {
		return "", err
	}
	data, err := s.Screenshot(ctx, fullPage)
	if err != nil {
		return "", err
	}
	if err := report.SavePNG(path, data); err != nil {
		return "", err
	}
	l.logger.Info("screenshot saved", "session", s.ID, "path", path)
	return path, nil
}

// BindPDF collects previously saved screenshots from the output directory
// into one PDF there, returning the resolved path.
func (l *Lens) BindPDF(name string, imageNames []string) (string, error) {
	outPath, err := l.OutputPath(name)
	if err != nil {
		return "", err
	}
	imagePaths := make([]string, 0, len(imageNames))
	for _, img := range imageNames {
		p, err := l.OutputPath(img)
		if err != nil {
			return "", err
		}
		imagePaths = append(imagePaths, p)
	}
	if err := report.BindPDF(outPath, imagePaths); err != nil {
		return "", err
	}
	l.logger.Info("pdf bound", "path", outPath, "pages", len(imagePaths))
	return outPath, nil
}

func (l *Lens) browserManager() (*browser.Manager, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.manager == nil {
		l.manager = browser.NewManager(browser.Config{
			RemoteURL:        l.cfg.Browser.Remote,
			Headful:          l.cfg.Browser.Headful,
			Stealth:          l.cfg.Browser.Stealth,
			ResourceBlocking: l.cfg.Browser.ResourceBlocking,
			Logger:           l.logger,
		})
	}
	if _, err := l.manager.Start(); err != nil {
		return nil, err
	}
	return l.manager, nil
}
