package livedom

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domlens/assets"
	"github.com/hazyhaar/domlens/dom"
)

// document implements dom.Document over one Rod page: the main page or an
// attached same-origin frame.
type document struct {
	page   *rod.Page
	url    string
	logger *slog.Logger

	mu       sync.Mutex
	dragInit bool
}

func (d *document) URL() string { return d.url }

// Query runs querySelectorAll in page context. A malformed selector throws
// there and surfaces as an error.
func (d *document) Query(selector string) ([]dom.Element, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("livedom: selector %q in %s: %w", selector, d.url, err)
	}
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out, nil
}

func (d *document) EnsureStylesheet(href string) (bool, error) {
	res, err := d.page.Eval(assets.JSFunc(assets.EnsureStylesheetJS), href)
	if err != nil {
		return false, fmt.Errorf("livedom: ensure stylesheet in %s: %w", d.url, err)
	}
	return res.Value.Bool(), nil
}

func (d *document) InsertOverlay(ov dom.Overlay) error {
	if ov.Draggable {
		if err := d.ensureDragScript(); err != nil {
			return err
		}
	}

	spec := map[string]any{
		"id":          ov.ID,
		"idAttr":      assets.IDAttr,
		"baseClass":   assets.BaseClass,
		"markerClass": ov.Class,
		"dragClass":   assets.DragClass,
		"labelClass":  assets.LabelClass,
		"label":       ov.Label,
		"title":       ov.Title,
		"x":           ov.Rect.X,
		"y":           ov.Rect.Y,
		"width":       ov.Rect.Width,
		"height":      ov.Rect.Height,
		"draggable":   ov.Draggable,
	}
	if _, err := d.page.Eval(assets.JSFunc(assets.InsertOverlayJS), spec); err != nil {
		return fmt.Errorf("livedom: insert overlay in %s: %w", d.url, err)
	}
	return nil
}

// ensureDragScript installs the delegated drag handlers. The script guards
// itself with a window flag, so evaluating it again after a reload or from
// a later pass is harmless.
func (d *document) ensureDragScript() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragInit {
		return nil
	}
	if _, err := d.page.Eval(assets.JSFunc(assets.DragJS)); err != nil {
		return fmt.Errorf("livedom: install drag handlers in %s: %w", d.url, err)
	}
	d.dragInit = true
	return nil
}

func (d *document) RemoveByClass(class string) (int, error) {
	res, err := d.page.Eval(assets.JSFunc(assets.RemoveOverlaysJS), class)
	if err != nil {
		return 0, fmt.Errorf("livedom: remove %q in %s: %w", class, d.url, err)
	}
	return res.Value.Int(), nil
}
