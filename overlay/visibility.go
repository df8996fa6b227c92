package overlay

import (
	"fmt"

	"github.com/hazyhaar/domlens/dom"
)

// Visible reports whether an element is visible: it walks from the element
// up to the document root and checks four hiding signals at every step
// (computed display, computed visibility, the hidden attribute, and
// aria-hidden="true"). A hit anywhere on the chain hides the element
// (ancestors' hidden state propagates down); reaching the root without one
// means visible.
func Visible(el dom.Element) (bool, error) {
	for cur := el; cur != nil; {
		hidden, err := hiddenNode(cur)
		if err != nil {
			return false, err
		}
		if hidden {
			return false, nil
		}
		parent, err := cur.Parent()
		if err != nil {
			return false, fmt.Errorf("overlay: ancestor walk at <%s>: %w", cur.Tag(), err)
		}
		cur = parent
	}
	return true, nil
}

// hiddenNode checks the four hiding signals on a single node.
func hiddenNode(el dom.Element) (bool, error) {
	display, err := el.Style("display")
	if err != nil {
		return false, fmt.Errorf("overlay: display of <%s>: %w", el.Tag(), err)
	}
	if display == "none" {
		return true, nil
	}

	visibility, err := el.Style("visibility")
	if err != nil {
		return false, fmt.Errorf("overlay: visibility of <%s>: %w", el.Tag(), err)
	}
	if visibility == "hidden" {
		return true, nil
	}

	hidden, err := el.Attr("hidden")
	if err != nil {
		return false, fmt.Errorf("overlay: hidden attr of <%s>: %w", el.Tag(), err)
	}
	if hidden != nil {
		return true, nil
	}

	ariaHidden, err := el.Attr("aria-hidden")
	if err != nil {
		return false, fmt.Errorf("overlay: aria-hidden attr of <%s>: %w", el.Tag(), err)
	}
	if ariaHidden != nil && *ariaHidden == "true" {
		return true, nil
	}

	return false, nil
}
