package staticdom

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/domlens/dom"
)

// LayoutFunc assigns a synthetic rectangle to an element given its depth in
// the tree and its position in document order. There is no layout engine
// here; geometry only needs to be deterministic and roughly shaped like a
// page so annotated output is readable.
type LayoutFunc func(depth, index int) dom.Rect

// defaultLayout stacks elements top to bottom, indenting by depth.
func defaultLayout(depth, index int) dom.Rect {
	x := float64(8 * depth)
	width := 640 - 2*x
	if width < 40 {
		width = 40
	}
	return dom.Rect{X: x, Y: float64(18 * index), Width: width, Height: 16}
}

// rectFor returns the element's synthetic rectangle, computing the layout
// for the whole tree on first use. A node missing from the cache (inserted
// after the last pass) triggers a recompute before giving up.
func (d *document) rectFor(n *html.Node) dom.Rect {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rects == nil {
		d.computeLayoutLocked()
	}
	if r, ok := d.rects[n]; ok {
		return r
	}
	d.computeLayoutLocked()
	return d.rects[n]
}

func (d *document) computeLayoutLocked() {
	d.rects = make(map[*html.Node]dom.Rect)
	index := 0
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode {
			d.rects[n] = d.layout(depth, index)
			index++
			depth++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth)
		}
	}
	walk(d.root, 0)
}
