package overlay

import (
	"context"
	"fmt"

	"github.com/hazyhaar/domlens/dom"
)

// defaultMaxSnippet caps the outer-HTML excerpt attached to a Match.
const defaultMaxSnippet = 400

// Match is one element reported by an inspect pass.
type Match struct {
	Document string   `json:"document"`
	Target   string   `json:"target,omitempty"`
	Selector string   `json:"selector"`
	Tag      string   `json:"tag"`
	Rect     dom.Rect `json:"rect"`
	Visible  bool     `json:"visible"`
	Label    string   `json:"label,omitempty"`
	Info     *Info    `json:"info,omitempty"`
	HTML     string   `json:"html,omitempty"`
}

// InspectOptions configures a read-only inspect pass. The info pipeline
// mirrors AddOptions; MaxSnippet bounds the HTML excerpt per match (0 means
// the default).
type InspectOptions struct {
	GetInfo    func(el dom.Element, t *Target) *Info
	EvalInfo   func(info *Info, t *Target)
	FormatInfo func(info *Info) string
	MaxSnippet int
}

// Inspect runs the selection of an add pass without touching the DOM: no
// stylesheet, no overlays. It reports every element that matched a target
// and passed its filter, including invisible ones (flagged Visible=false),
// so callers see exactly what an add pass would mark and what it would skip.
func (e *Engine) Inspect(ctx context.Context, targets []Target, opts InspectOptions) ([]Match, error) {
	docs, err := e.provider.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("overlay: enumerate documents: %w", err)
	}
	maxSnippet := opts.MaxSnippet
	if maxSnippet <= 0 {
		maxSnippet = defaultMaxSnippet
	}

	var matches []Match
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return matches, err
		}
		for i := range targets {
			t := &targets[i]
			els, err := doc.Query(t.Selector)
			if err != nil {
				return matches, fmt.Errorf("overlay: select %q in %s: %w", t.Selector, doc.URL(), err)
			}
			for _, el := range els {
				if t.Filter != nil && !t.Filter(el) {
					continue
				}
				m, err := e.matchElement(doc, el, t, opts, maxSnippet)
				if err != nil {
					return matches, err
				}
				matches = append(matches, m)
			}
		}
	}

	e.logger.Debug("inspect pass done", "documents", len(docs), "matches", len(matches))
	return matches, nil
}

func (e *Engine) matchElement(doc dom.Document, el dom.Element, t *Target, opts InspectOptions, maxSnippet int) (Match, error) {
	visible, err := Visible(el)
	if err != nil {
		return Match{}, fmt.Errorf("overlay: visibility in %s: %w", doc.URL(), err)
	}
	rect, err := el.Rect()
	if err != nil {
		return Match{}, fmt.Errorf("overlay: bounding box in %s: %w", doc.URL(), err)
	}

	m := Match{
		Document: doc.URL(),
		Target:   t.Name,
		Selector: t.Selector,
		Tag:      el.Tag(),
		Rect:     rect,
		Visible:  visible,
	}

	if opts.GetInfo != nil {
		info := opts.GetInfo(el, t)
		if opts.EvalInfo != nil {
			opts.EvalInfo(info, t)
		}
		if opts.FormatInfo != nil {
			m.Label = opts.FormatInfo(info)
		}
		m.Info = info
	}

	if html, err := el.HTML(); err == nil {
		m.HTML = truncate(html, maxSnippet)
	}
	return m, nil
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
