package overlay

import (
	"errors"
	"strings"

	"github.com/hazyhaar/domlens/dom"
)

// Structural helpers used by info-extraction callbacks. The engine's own
// passes never call them; they exist so callbacks can describe an element's
// surroundings (list item counts, landmark containment, label wrapping)
// without reaching around the dom abstraction.

// CountChildrenByTag returns how many direct element children of el have a
// tag name in tags. Tag comparison is case-insensitive.
func CountChildrenByTag(el dom.Element, tags ...string) (int, error) {
	children, err := el.Children()
	if err != nil {
		return 0, err
	}
	want := tagSet(tags)
	n := 0
	for _, c := range children {
		if _, ok := want[c.Tag()]; ok {
			n++
		}
	}
	return n, nil
}

// DescendsFromTag reports whether el or one of its ancestors has a tag name
// in tags. It delegates to the provider's native ancestor matching, which is
// self-inclusive like closest(); when the provider cannot match ancestors it
// returns false rather than an error.
func DescendsFromTag(el dom.Element, tags ...string) (bool, error) {
	if len(tags) == 0 {
		return false, nil
	}
	lower := make([]string, len(tags))
	for i, t := range tags {
		lower[i] = strings.ToLower(t)
	}
	ok, err := el.Closest(strings.Join(lower, ", "))
	if errors.Is(err, dom.ErrNotSupported) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

// HasParentTag reports whether el's immediate parent has a tag name in tags.
// Only one level is inspected; use DescendsFromTag for the full chain.
func HasParentTag(el dom.Element, tags ...string) (bool, error) {
	parent, err := el.Parent()
	if err != nil {
		return false, err
	}
	if parent == nil {
		return false, nil
	}
	_, ok := tagSet(tags)[parent.Tag()]
	return ok, nil
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}
