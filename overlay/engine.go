// Package overlay implements the overlay engine used by accessibility
// inspection: it selects target elements across every reachable document,
// filters out elements hidden by cascading style/ARIA state, and draws
// positioned overlay nodes that are later removed in bulk by marker class.
//
// The engine mutates documents only through the dom abstraction, so the same
// passes run against a live Chrome page (livedom) or a parsed HTML tree
// (staticdom). It inserts nodes, never removes or rewrites existing content;
// the only removal it performs is of its own overlays.
package overlay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/idgen"
)

// Target describes one class of elements to mark: a CSS selector plus an
// optional filter predicate applied after selection. The remaining fields
// are not interpreted by the engine; they ride along for the info callbacks.
type Target struct {
	Selector string
	Filter   func(dom.Element) bool

	Name string
	Note string
	Meta map[string]string
}

// Info is the descriptive record an info-extraction callback produces for a
// matched element. The evaluation callback may rewrite it in place; the
// format callback renders it into overlay label text.
type Info struct {
	Role    string            `json:"role,omitempty"`
	Label   string            `json:"label,omitempty"`
	Notes   []string          `json:"notes,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// AddOptions configures one add pass.
//
// Class is the marker class stamped on every overlay, required. Stylesheet,
// when non-empty, is the href of a stylesheet link ensured once per document
// before any overlay is inserted. GetInfo/EvalInfo/FormatInfo are the
// caller's info pipeline; each is optional and skipped when nil.
type AddOptions struct {
	Class      string
	Stylesheet string
	GetInfo    func(el dom.Element, t *Target) *Info
	EvalInfo   func(info *Info, t *Target)
	FormatInfo func(info *Info) string
	Draggable  bool
}

// Engine runs add/remove/inspect passes against one document provider.
type Engine struct {
	provider dom.Provider
	logger   *slog.Logger
	newID    idgen.Generator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIDGenerator sets the generator for overlay IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// New creates an Engine on top of a document provider.
func New(provider dom.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		logger:   slog.Default(),
		newID:    idgen.Default,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Add draws overlays for every visible element matching the targets, in
// every reachable document, and returns how many overlays were created.
//
// Per document it first ensures the stylesheet link, then walks the targets
// in order: select, filter, visibility check, rectangle, info pipeline,
// insert. Invisible and filter-rejected elements are skipped and not
// counted. Errors abort the pass; overlays created before the failure stay
// in place, there is no rollback.
func (e *Engine) Add(ctx context.Context, targets []Target, opts AddOptions) (int, error) {
	if opts.Class == "" {
		return 0, fmt.Errorf("overlay: marker class required")
	}

	docs, err := e.provider.Documents(ctx)
	if err != nil {
		return 0, fmt.Errorf("overlay: enumerate documents: %w", err)
	}

	created := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		n, err := e.addToDocument(doc, targets, opts)
		created += n
		if err != nil {
			return created, err
		}
	}

	e.logger.Info("overlays added",
		"class", opts.Class, "documents", len(docs), "created", created)
	return created, nil
}

func (e *Engine) addToDocument(doc dom.Document, targets []Target, opts AddOptions) (int, error) {
	if opts.Stylesheet != "" {
		inserted, err := doc.EnsureStylesheet(opts.Stylesheet)
		if err != nil {
			return 0, fmt.Errorf("overlay: stylesheet in %s: %w", doc.URL(), err)
		}
		if inserted {
			e.logger.Debug("stylesheet injected", "document", doc.URL(), "href", opts.Stylesheet)
		}
	}

	created := 0
	for i := range targets {
		t := &targets[i]
		els, err := doc.Query(t.Selector)
		if err != nil {
			return created, fmt.Errorf("overlay: select %q in %s: %w", t.Selector, doc.URL(), err)
		}
		for _, el := range els {
			if t.Filter != nil && !t.Filter(el) {
				continue
			}
			visible, err := Visible(el)
			if err != nil {
				return created, fmt.Errorf("overlay: visibility in %s: %w", doc.URL(), err)
			}
			if !visible {
				continue
			}
			if err := e.drawOverlay(doc, el, t, opts); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (e *Engine) drawOverlay(doc dom.Document, el dom.Element, t *Target, opts AddOptions) error {
	rect, err := el.Rect()
	if err != nil {
		return fmt.Errorf("overlay: bounding box in %s: %w", doc.URL(), err)
	}

	var label string
	if opts.GetInfo != nil {
		info := opts.GetInfo(el, t)
		if opts.EvalInfo != nil {
			opts.EvalInfo(info, t)
		}
		if opts.FormatInfo != nil {
			label = opts.FormatInfo(info)
		}
	}

	ov := dom.Overlay{
		ID:        e.newID(),
		Class:     opts.Class,
		Label:     label,
		Title:     label,
		Rect:      rect,
		Draggable: opts.Draggable,
	}
	if err := doc.InsertOverlay(ov); err != nil {
		return fmt.Errorf("overlay: insert in %s: %w", doc.URL(), err)
	}
	return nil
}

// Remove deletes every overlay div carrying the marker class from every
// reachable document and returns how many were removed. Calling it when no
// overlays exist is a no-op.
func (e *Engine) Remove(ctx context.Context, class string) (int, error) {
	if class == "" {
		return 0, fmt.Errorf("overlay: marker class required")
	}

	docs, err := e.provider.Documents(ctx)
	if err != nil {
		return 0, fmt.Errorf("overlay: enumerate documents: %w", err)
	}

	removed := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		n, err := doc.RemoveByClass(class)
		removed += n
		if err != nil {
			return removed, fmt.Errorf("overlay: remove in %s: %w", doc.URL(), err)
		}
	}

	e.logger.Info("overlays removed", "class", class, "documents", len(docs), "removed", removed)
	return removed, nil
}
