package overlay

import "testing"

// chain builds html > body > section > p and returns all four, root first.
func chain() (root, body, section, para *fakeEl) {
	root = newEl("html")
	body = attach(root, newEl("body"))
	section = attach(body, newEl("section"))
	para = attach(section, newEl("p"))
	return
}

func TestVisible_CleanChain(t *testing.T) {
	_, _, _, para := chain()
	v, err := Visible(para)
	if err != nil {
		t.Fatal(err)
	}
	if !v {
		t.Fatal("element with no hiding signal anywhere: got hidden, want visible")
	}
}

func TestVisible_DisplayNoneOnSelf(t *testing.T) {
	_, _, _, para := chain()
	para.styles["display"] = "none"
	v, err := Visible(para)
	if err != nil {
		t.Fatal(err)
	}
	if v {
		t.Fatal("display:none on the element: got visible, want hidden")
	}
}

func TestVisible_VisibilityHiddenOnAncestor(t *testing.T) {
	_, _, section, para := chain()
	section.styles["visibility"] = "hidden"
	v, err := Visible(para)
	if err != nil {
		t.Fatal(err)
	}
	if v {
		t.Fatal("visibility:hidden on ancestor: got visible, want hidden")
	}
}

func TestVisible_HiddenAttributeOnAncestor(t *testing.T) {
	root, _, _, para := chain()
	root.attrs["hidden"] = "" // boolean attribute, value irrelevant
	v, err := Visible(para)
	if err != nil {
		t.Fatal(err)
	}
	if v {
		t.Fatal("hidden attribute on root ancestor: got visible, want hidden")
	}
}

func TestVisible_AriaHiddenTrueOnParent(t *testing.T) {
	_, _, section, para := chain()
	section.attrs["aria-hidden"] = "true"
	v, err := Visible(para)
	if err != nil {
		t.Fatal(err)
	}
	if v {
		t.Fatal("aria-hidden=true on parent: got visible, want hidden")
	}
}

func TestVisible_AriaHiddenFalseDoesNotHide(t *testing.T) {
	_, _, section, para := chain()
	section.attrs["aria-hidden"] = "false"
	v, err := Visible(para)
	if err != nil {
		t.Fatal(err)
	}
	if !v {
		t.Fatal("aria-hidden=false must not hide the element")
	}
}

func TestVisible_OtherStyleValuesDoNotHide(t *testing.T) {
	_, _, section, para := chain()
	section.styles["display"] = "flex"
	para.styles["visibility"] = "visible"
	v, err := Visible(para)
	if err != nil {
		t.Fatal(err)
	}
	if !v {
		t.Fatal("non-hiding style values: got hidden, want visible")
	}
}

func TestVisible_SignalBelowElementIsIgnored(t *testing.T) {
	// Hiding a child must not hide the parent: the walk goes up, not down.
	_, _, section, para := chain()
	para.styles["display"] = "none"
	v, err := Visible(section)
	if err != nil {
		t.Fatal(err)
	}
	if !v {
		t.Fatal("hidden descendant leaked into ancestor visibility")
	}
}
