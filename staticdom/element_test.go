package staticdom

import (
	"strings"
	"testing"

	"github.com/hazyhaar/domlens/dom"
)

func firstMatch(t *testing.T, p *Provider, selector string) dom.Element {
	t.Helper()
	els, err := p.main.Query(selector)
	if err != nil {
		t.Fatalf("query %q: %v", selector, err)
	}
	if len(els) == 0 {
		t.Fatalf("query %q: no matches", selector)
	}
	return els[0]
}

func TestElement_StyleFromInlineAttribute(t *testing.T) {
	p := mustParse(t, `<html><body>
		<div id="a" style="display:none; Visibility: HIDDEN ; color: red"></div>
		<div id="b"></div>
	</body></html>`)

	a := firstMatch(t, p, "#a")
	for prop, want := range map[string]string{
		"display":    "none",
		"visibility": "hidden",
		"color":      "red",
		"opacity":    "",
	} {
		got, err := a.Style(prop)
		if err != nil {
			t.Fatalf("style %q: %v", prop, err)
		}
		if got != want {
			t.Errorf("style %q: got %q, want %q", prop, got, want)
		}
	}

	b := firstMatch(t, p, "#b")
	if got, _ := b.Style("display"); got != "" {
		t.Errorf("style without attribute: got %q, want empty", got)
	}
}

func TestElement_AttrPresenceAndAbsence(t *testing.T) {
	p := mustParse(t, `<html><body><input type="text" hidden></body></html>`)

	in := firstMatch(t, p, "input")
	hid, err := in.Attr("hidden")
	if err != nil {
		t.Fatalf("attr: %v", err)
	}
	if hid == nil {
		t.Fatal("hidden attribute: got nil, want present (empty value)")
	}
	alt, err := in.Attr("alt")
	if err != nil {
		t.Fatalf("attr: %v", err)
	}
	if alt != nil {
		t.Fatalf("absent attribute: got %q, want nil", *alt)
	}
}

func TestElement_ParentWalkStopsAtRoot(t *testing.T) {
	p := mustParse(t, `<html><body><main><p>hi</p></main></body></html>`)

	el := firstMatch(t, p, "p")
	var tags []string
	for {
		parent, err := el.Parent()
		if err != nil {
			t.Fatalf("parent: %v", err)
		}
		if parent == nil {
			break
		}
		tags = append(tags, parent.Tag())
		el = parent
	}
	want := "main body html"
	if got := strings.Join(tags, " "); got != want {
		t.Errorf("ancestor tags: got %q, want %q", got, want)
	}
}

func TestElement_ChildrenSkipsTextNodes(t *testing.T) {
	p := mustParse(t, `<html><body><ul> <li>one</li> text <li>two</li> </ul></body></html>`)

	ul := firstMatch(t, p, "ul")
	kids, err := ul.Children()
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(kids) != 2 {
		t.Fatalf("children: got %d, want 2", len(kids))
	}
	for _, k := range kids {
		if k.Tag() != "li" {
			t.Errorf("child tag: got %q, want li", k.Tag())
		}
	}
}

func TestElement_Closest(t *testing.T) {
	p := mustParse(t, `<html><body><nav role="navigation"><ul><li><a href="/">Home</a></li></ul></nav></body></html>`)

	a := firstMatch(t, p, "a")
	tests := []struct {
		selector string
		want     bool
	}{
		{"a", true}, // self-inclusive
		{"nav", true},
		{"li", true},
		{"[role=navigation]", true},
		{"footer", false},
		{"main, aside", false},
		{"nav, footer", true},
	}
	for _, tt := range tests {
		got, err := a.Closest(tt.selector)
		if err != nil {
			t.Fatalf("closest %q: %v", tt.selector, err)
		}
		if got != tt.want {
			t.Errorf("closest %q: got %v, want %v", tt.selector, got, tt.want)
		}
	}

	if _, err := a.Closest("nav["); err == nil {
		t.Fatal("expected error for malformed selector")
	}
}

func TestElement_TextAndHTML(t *testing.T) {
	p := mustParse(t, `<html><body><p id="x">Hello <b>bold</b> world</p></body></html>`)

	el := firstMatch(t, p, "#x")
	text, err := el.Text()
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if text != "Hello bold world" {
		t.Errorf("text: got %q, want %q", text, "Hello bold world")
	}

	h, err := el.HTML()
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !strings.Contains(h, "<b>bold</b>") {
		t.Errorf("html: got %q, want to contain <b>bold</b>", h)
	}
}
