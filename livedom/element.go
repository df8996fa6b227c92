package livedom

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domlens/dom"
)

// element implements dom.Element over one Rod element handle.
type element struct {
	el *rod.Element
}

func (e *element) Tag() string {
	res, err := e.el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (e *element) Attr(name string) (*string, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return nil, fmt.Errorf("livedom: attribute %q: %w", name, err)
	}
	return v, nil
}

// Style returns the computed style value, cascade included.
func (e *element) Style(name string) (string, error) {
	res, err := e.el.Eval(`(prop) => getComputedStyle(this).getPropertyValue(prop)`, name)
	if err != nil {
		return "", fmt.Errorf("livedom: computed style %q: %w", name, err)
	}
	return res.Value.Str(), nil
}

func (e *element) Parent() (dom.Element, error) {
	res, err := e.el.Eval(`() => this.parentElement !== null`)
	if err != nil {
		return nil, fmt.Errorf("livedom: parent check: %w", err)
	}
	if !res.Value.Bool() {
		return nil, nil
	}
	parent, err := e.el.Parent()
	if err != nil {
		return nil, fmt.Errorf("livedom: parent: %w", err)
	}
	return &element{el: parent}, nil
}

func (e *element) Children() ([]dom.Element, error) {
	els, err := e.el.Elements(":scope > *")
	if err != nil {
		return nil, fmt.Errorf("livedom: children: %w", err)
	}
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out, nil
}

// Rect returns the bounding box in page coordinates; scroll offsets are
// folded in so overlays land on the element regardless of scroll position.
func (e *element) Rect() (dom.Rect, error) {
	res, err := e.el.Eval(`() => {
		const r = this.getBoundingClientRect();
		return {
			x: r.left + window.scrollX,
			y: r.top + window.scrollY,
			width: r.width,
			height: r.height,
		};
	}`)
	if err != nil {
		return dom.Rect{}, fmt.Errorf("livedom: bounding rect: %w", err)
	}
	v := res.Value
	return dom.Rect{
		X:      v.Get("x").Num(),
		Y:      v.Get("y").Num(),
		Width:  v.Get("width").Num(),
		Height: v.Get("height").Num(),
	}, nil
}

func (e *element) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		return "", fmt.Errorf("livedom: text: %w", err)
	}
	return text, nil
}

func (e *element) HTML() (string, error) {
	h, err := e.el.HTML()
	if err != nil {
		return "", fmt.Errorf("livedom: html: %w", err)
	}
	return h, nil
}

// Closest runs the native closest() in page context. A malformed selector
// throws there and surfaces as an error.
func (e *element) Closest(selector string) (bool, error) {
	res, err := e.el.Eval(`(sel) => this.closest(sel) !== null`, selector)
	if err != nil {
		return false, fmt.Errorf("livedom: closest %q: %w", selector, err)
	}
	return res.Value.Bool(), nil
}
