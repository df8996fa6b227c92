package staticdom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/domlens/dom"
)

// element implements dom.Element over one parsed node.
type element struct {
	node *html.Node
	doc  *document
}

func (e *element) Tag() string {
	return strings.ToLower(e.node.Data)
}

func (e *element) Attr(name string) (*string, error) {
	name = strings.ToLower(name)
	for _, a := range e.node.Attr {
		if a.Key == name {
			v := a.Val
			return &v, nil
		}
	}
	return nil, nil
}

// Style derives property values from the inline style attribute. Without a
// layout engine there is no cascade; stylesheet-driven hiding is invisible
// to this provider and documented as such.
func (e *element) Style(name string) (string, error) {
	style, err := e.Attr("style")
	if err != nil || style == nil {
		return "", err
	}
	return parseInlineStyle(*style)[strings.ToLower(name)], nil
}

func (e *element) Parent() (dom.Element, error) {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil, nil
	}
	return e.doc.elem(p), nil
}

func (e *element) Children() ([]dom.Element, error) {
	var out []dom.Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.elem(c))
		}
	}
	return out, nil
}

func (e *element) Rect() (dom.Rect, error) {
	return e.doc.rectFor(e.node), nil
}

func (e *element) Text() (string, error) {
	return goquery.NewDocumentFromNode(e.node).Text(), nil
}

func (e *element) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.node); err != nil {
		return "", fmt.Errorf("staticdom: render element: %w", err)
	}
	return buf.String(), nil
}

// Closest walks from the element through its ancestors looking for a match,
// self included, like the native closest() call.
func (e *element) Closest(selector string) (bool, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return false, fmt.Errorf("staticdom: selector %q: %w", selector, err)
	}
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if sel.Match(n) {
			return true, nil
		}
	}
	return false, nil
}

// parseInlineStyle splits a style attribute into a lowercase property map.
// Values are lowercased too; the engine only compares keyword values.
func parseInlineStyle(style string) map[string]string {
	props := make(map[string]string)
	for _, part := range strings.Split(style, ";") {
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		props[key] = strings.ToLower(strings.TrimSpace(val))
	}
	return props
}
