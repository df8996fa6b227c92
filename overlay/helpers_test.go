package overlay

import "testing"

func TestCountChildrenByTag_DirectChildrenOnly(t *testing.T) {
	list := newEl("ul")
	attach(list, newEl("li"))
	item := attach(list, newEl("li"))
	attach(list, newEl("p"))
	attach(item, newEl("li")) // grandchild, must not count

	n, err := CountChildrenByTag(list, "li")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("li children: got %d, want 2", n)
	}
}

func TestCountChildrenByTag_CaseInsensitive(t *testing.T) {
	dl := newEl("dl")
	attach(dl, newEl("dt"))
	attach(dl, newEl("dd"))
	attach(dl, newEl("dd"))

	n, err := CountChildrenByTag(dl, "DT", "DD")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("dt+dd children: got %d, want 3", n)
	}
}

func TestDescendsFromTag_MatchesAncestor(t *testing.T) {
	nav := newEl("nav")
	list := attach(nav, newEl("ul"))
	item := attach(list, newEl("li"))

	ok, err := DescendsFromTag(item, "nav", "aside")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("li inside nav: got false, want true")
	}
}

func TestDescendsFromTag_SelfInclusive(t *testing.T) {
	// Native closest() starts at the element itself; the helper keeps that.
	nav := newEl("nav")
	ok, err := DescendsFromTag(nav, "nav")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("element matching its own tag: got false, want true")
	}
}

func TestDescendsFromTag_NoMatch(t *testing.T) {
	body := newEl("body")
	para := attach(body, newEl("p"))

	ok, err := DescendsFromTag(para, "nav", "main")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("no matching ancestor: got true, want false")
	}
}

func TestDescendsFromTag_UnsupportedFallsBackToFalse(t *testing.T) {
	el := newEl("li")
	el.noClosest = true

	ok, err := DescendsFromTag(el, "ul")
	if err != nil {
		t.Fatalf("unsupported ancestor matching must not be an error, got: %v", err)
	}
	if ok {
		t.Fatal("unsupported ancestor matching: got true, want false")
	}
}

func TestHasParentTag_ImmediateParentOnly(t *testing.T) {
	form := newEl("form")
	label := attach(form, newEl("label"))
	input := attach(label, newEl("input"))

	ok, err := HasParentTag(input, "label")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("input wrapped in label: got false, want true")
	}

	// form is a grandparent; the single-level check must not see it.
	ok, err = HasParentTag(input, "form")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("grandparent matched by direct-parent check")
	}
}

func TestHasParentTag_RootHasNoParent(t *testing.T) {
	root := newEl("html")
	ok, err := HasParentTag(root, "html", "body")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("root element reported a parent")
	}
}
