package staticdom

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domlens/assets"
	"github.com/hazyhaar/domlens/dom"
)

var stylesheetSel = cascadia.MustCompile("link[rel=stylesheet]")

// document implements dom.Document over one parsed tree. The same instance
// is handed out on every Documents call so mutations accumulate until
// removed.
type document struct {
	url    string
	root   *html.Node
	gq     *goquery.Document
	layout LayoutFunc
	logger *slog.Logger

	mu       sync.Mutex
	rects    map[*html.Node]dom.Rect
	dragUsed bool
}

func newDocument(url string, root *html.Node, layout LayoutFunc, logger *slog.Logger) *document {
	return &document{
		url:    url,
		root:   root,
		gq:     goquery.NewDocumentFromNode(root),
		layout: layout,
		logger: logger,
	}
}

func (d *document) URL() string { return d.url }

// Query matches a CSS selector against the tree. The selector is compiled
// through cascadia directly so a malformed one surfaces as an error instead
// of a panic.
func (d *document) Query(selector string) ([]dom.Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("staticdom: selector %q: %w", selector, err)
	}
	nodes := sel.MatchAll(d.root)
	out := make([]dom.Element, len(nodes))
	for i, n := range nodes {
		out[i] = d.elem(n)
	}
	return out, nil
}

func (d *document) EnsureStylesheet(href string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, n := range stylesheetSel.MatchAll(d.root) {
		if nodeAttr(n, "href") == href {
			return false, nil
		}
	}
	head := findFirst(d.root, atom.Head)
	if head == nil {
		return false, fmt.Errorf("staticdom: document %s has no head", d.url)
	}
	head.AppendChild(&html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Link,
		Data:     "link",
		Attr: []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: href},
		},
	})
	return true, nil
}

func (d *document) InsertOverlay(ov dom.Overlay) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	body := findFirst(d.root, atom.Body)
	if body == nil {
		return fmt.Errorf("staticdom: document %s has no body", d.url)
	}

	class := assets.BaseClass + " " + ov.Class
	if ov.Draggable {
		class += " " + assets.DragClass
		d.dragUsed = true
	}

	div := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "class", Val: class},
			{Key: assets.IDAttr, Val: ov.ID},
			{Key: "style", Val: overlayStyle(ov.Rect)},
		},
	}
	if ov.Title != "" {
		div.Attr = append(div.Attr, html.Attribute{Key: "title", Val: ov.Title})
	}
	if ov.Label != "" {
		span := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Span,
			Data:     "span",
			Attr:     []html.Attribute{{Key: "class", Val: assets.LabelClass}},
		}
		span.AppendChild(&html.Node{Type: html.TextNode, Data: ov.Label})
		div.AppendChild(span)
	}

	body.AppendChild(div)
	return nil
}

func (d *document) RemoveByClass(class string) (int, error) {
	sel, err := cascadia.Compile("div." + class)
	if err != nil {
		return 0, fmt.Errorf("staticdom: marker class %q: %w", class, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	nodes := sel.MatchAll(d.root)
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(nodes), nil
}

func (d *document) elem(n *html.Node) *element {
	return &element{node: n, doc: d}
}

// title returns the text of the first <title>, trimmed.
func (d *document) title() string {
	return strings.TrimSpace(d.gq.Find("title").First().Text())
}

// render serializes the tree, inlining the drag script once when draggable
// overlays were inserted.
func (d *document) render(w io.Writer) error {
	d.mu.Lock()
	if d.dragUsed {
		d.ensureDragScript()
	}
	d.mu.Unlock()

	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("staticdom: render %s: %w", d.url, err)
	}
	return nil
}

func (d *document) ensureDragScript() {
	for _, n := range scriptSel.MatchAll(d.root) {
		if nodeAttr(n, "data-domlens") == "drag" {
			return
		}
	}
	body := findFirst(d.root, atom.Body)
	if body == nil {
		return
	}
	script := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
		Attr:     []html.Attribute{{Key: "data-domlens", Val: "drag"}},
	}
	// The embedded source is a function expression; invoke it for inline use.
	script.AppendChild(&html.Node{Type: html.TextNode, Data: "(" + assets.JSFunc(assets.DragJS) + ")();"})
	body.AppendChild(script)
}

var scriptSel = cascadia.MustCompile("script")

// findFirst returns the first element with the given atom, depth-first.
func findFirst(root *html.Node, a atom.Atom) *html.Node {
	if root.Type == html.ElementNode && root.DataAtom == a {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func overlayStyle(r dom.Rect) string {
	var b bytes.Buffer
	b.WriteString("position:absolute;left:")
	b.WriteString(cssPx(r.X))
	b.WriteString(";top:")
	b.WriteString(cssPx(r.Y))
	b.WriteString(";width:")
	b.WriteString(cssPx(r.Width))
	b.WriteString(";height:")
	b.WriteString(cssPx(r.Height))
	return b.String()
}

func cssPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
