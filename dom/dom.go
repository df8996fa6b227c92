// Package dom defines the document-provider abstraction the overlay engine
// works against.
//
// A Provider enumerates the documents reachable from one inspected page: the
// main document plus every same-origin iframe document. Implementations back
// the same interfaces with a live Chrome page (livedom) or a parsed HTML tree
// (staticdom), so the engine and its callers never touch a browser API
// directly and stay testable against a fake.
//
// Documents and elements are bound to the context passed to Documents; their
// methods take no context of their own, mirroring how rod binds pages and
// elements.
package dom

import (
	"context"
	"errors"
)

// ErrNotSupported marks a capability an implementation does not provide,
// such as ancestor matching on a degraded document or screenshots on a
// parsed tree. Callers that can degrade gracefully test for it with
// errors.Is.
var ErrNotSupported = errors.New("dom: operation not supported")

// Rect is an element's bounding box in document coordinates (scroll offsets
// already applied), in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Overlay describes one overlay node to insert into a document body.
//
// Class is the marker class used later for bulk removal. Label is visible
// text rendered inside the overlay; Title becomes the tooltip. Both may be
// empty. ID is written to a data attribute so individual overlays stay
// addressable after insertion.
type Overlay struct {
	ID        string
	Class     string
	Label     string
	Title     string
	Rect      Rect
	Draggable bool
}

// Element is one element of a reachable document.
//
// Tag names are reported lowercase regardless of source casing. Attr returns
// nil for an absent attribute. Style returns the computed value where the
// provider has a layout engine and an inline-style derivation otherwise; an
// unset property yields the empty string. Parent returns (nil, nil) once the
// walk leaves the element tree.
type Element interface {
	Tag() string
	Attr(name string) (*string, error)
	Style(name string) (string, error)
	Parent() (Element, error)
	Children() ([]Element, error)
	Rect() (Rect, error)
	Text() (string, error)
	HTML() (string, error)

	// Closest reports whether the element or any of its ancestors matches
	// the selector, with the self-inclusive semantics of the native
	// closest() call. Implementations without ancestor matching return
	// ErrNotSupported.
	Closest(selector string) (bool, error)
}

// Document is one reachable document of an inspected page.
type Document interface {
	// URL identifies the document (page URL for the main document, frame
	// URL for an iframe document).
	URL() string

	// Query returns the elements matching a CSS selector, in document
	// order. A malformed selector is an error, not a panic.
	Query(selector string) ([]Element, error)

	// EnsureStylesheet guarantees a stylesheet link with the given href
	// exists in the document, inserting one if needed. It reports whether
	// an insertion happened, so repeated passes stay idempotent.
	EnsureStylesheet(href string) (bool, error)

	// InsertOverlay appends an overlay node to the document body. A
	// document without a body is an error; the caller treats it as fatal
	// for the running pass.
	InsertOverlay(ov Overlay) error

	// RemoveByClass removes every div carrying the class and returns how
	// many were removed. No matches is a no-op, not an error.
	RemoveByClass(class string) (int, error)
}

// Provider enumerates the documents reachable from the inspected page. The
// set is recomputed on every call because page structure changes between
// operations; callers must not cache it across passes.
type Provider interface {
	Documents(ctx context.Context) ([]Document, error)
}
