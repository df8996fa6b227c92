package overlay

import (
	"context"
	"errors"
	"strings"

	"github.com/hazyhaar/domlens/dom"
)

// Test doubles implementing the dom interfaces with canned query results.
// Selector semantics are exercised against real trees in the provider
// packages; here queries are looked up verbatim so tests drive the engine
// logic directly.

type fakeEl struct {
	tag       string
	attrs     map[string]string
	styles    map[string]string
	parent    *fakeEl
	kids      []*fakeEl
	rect      dom.Rect
	text      string
	html      string
	noClosest bool
}

func newEl(tag string) *fakeEl {
	return &fakeEl{
		tag:    tag,
		attrs:  make(map[string]string),
		styles: make(map[string]string),
	}
}

// attach links child under parent and returns the child for chaining into
// deeper levels.
func attach(parent, child *fakeEl) *fakeEl {
	child.parent = parent
	parent.kids = append(parent.kids, child)
	return child
}

func (e *fakeEl) Tag() string { return e.tag }

func (e *fakeEl) Attr(name string) (*string, error) {
	v, ok := e.attrs[name]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (e *fakeEl) Style(name string) (string, error) {
	return e.styles[name], nil
}

func (e *fakeEl) Parent() (dom.Element, error) {
	if e.parent == nil {
		return nil, nil
	}
	return e.parent, nil
}

func (e *fakeEl) Children() ([]dom.Element, error) {
	out := make([]dom.Element, len(e.kids))
	for i, k := range e.kids {
		out[i] = k
	}
	return out, nil
}

func (e *fakeEl) Rect() (dom.Rect, error) { return e.rect, nil }

func (e *fakeEl) Text() (string, error) { return e.text, nil }

func (e *fakeEl) HTML() (string, error) {
	if e.html != "" {
		return e.html, nil
	}
	return "<" + e.tag + ">" + e.text + "</" + e.tag + ">", nil
}

// Closest supports comma-separated tag selectors, which is all the engine
// helpers generate.
func (e *fakeEl) Closest(selector string) (bool, error) {
	if e.noClosest {
		return false, dom.ErrNotSupported
	}
	want := make(map[string]struct{})
	for _, part := range strings.Split(selector, ",") {
		want[strings.TrimSpace(strings.ToLower(part))] = struct{}{}
	}
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := want[cur.tag]; ok {
			return true, nil
		}
	}
	return false, nil
}

type fakeDoc struct {
	url      string
	queries  map[string][]*fakeEl
	queryErr error
	links    []string
	overlays []dom.Overlay
	noBody   bool
}

func newDoc(url string) *fakeDoc {
	return &fakeDoc{url: url, queries: make(map[string][]*fakeEl)}
}

func (d *fakeDoc) URL() string { return d.url }

func (d *fakeDoc) Query(selector string) ([]dom.Element, error) {
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	els := d.queries[selector]
	out := make([]dom.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

func (d *fakeDoc) EnsureStylesheet(href string) (bool, error) {
	for _, existing := range d.links {
		if existing == href {
			return false, nil
		}
	}
	d.links = append(d.links, href)
	return true, nil
}

func (d *fakeDoc) InsertOverlay(ov dom.Overlay) error {
	if d.noBody {
		return errors.New("document has no body")
	}
	d.overlays = append(d.overlays, ov)
	return nil
}

func (d *fakeDoc) RemoveByClass(class string) (int, error) {
	kept := d.overlays[:0]
	removed := 0
	for _, ov := range d.overlays {
		if ov.Class == class {
			removed++
			continue
		}
		kept = append(kept, ov)
	}
	d.overlays = kept
	return removed, nil
}

type fakeProvider struct {
	docs []*fakeDoc
	err  error
}

func (p *fakeProvider) Documents(ctx context.Context) ([]dom.Document, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]dom.Document, len(p.docs))
	for i, d := range p.docs {
		out[i] = d
	}
	return out, nil
}
