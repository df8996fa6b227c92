package lens

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/guard"
)

const testPage = `<!DOCTYPE html><html><head><title>Test page</title></head><body>
<header><h1>Welcome</h1></header>
<nav aria-label="Main"><a href="/">Home</a></nav>
<main><h2>Prices</h2><p>Body text.</p><img src="/logo.png"></main>
<footer>Imprint</footer>
</body></html>`

func newTestLens(t *testing.T) *Lens {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	return New(cfg, WithLogger(quiet()))
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenStaticHTML_SessionLifecycle(t *testing.T) {
	l := newTestLens(t)
	ctx := context.Background()

	s, err := l.OpenStaticHTML(strings.NewReader(testPage), "test.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s.ID, "sess_") {
		t.Errorf("ID = %q, want sess_ prefix", s.ID)
	}
	if s.Kind != KindStatic {
		t.Errorf("Kind = %q, want %q", s.Kind, KindStatic)
	}
	if got, err := l.Session(s.ID); err != nil || got != s {
		t.Fatalf("Session(%s) = %v, %v", s.ID, got, err)
	}

	// The default ruleset marks the four page landmarks.
	rs, err := l.DefaultRuleset()
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.Add(ctx, rs)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("Add = %d overlays, want 4", n)
	}
	if got := s.OverlayCount(rs.Class); got != 4 {
		t.Errorf("OverlayCount = %d, want 4", got)
	}
	if names := s.ClassNames(); len(names) != 1 || names[0] != rs.Class {
		t.Errorf("ClassNames = %v", names)
	}

	removed, err := s.Remove(ctx, rs.Class)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 4 {
		t.Errorf("Remove = %d, want 4", removed)
	}
	if got := s.OverlayCount(rs.Class); got != 0 {
		t.Errorf("OverlayCount after remove = %d, want 0", got)
	}

	if err := l.CloseSession(s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Session(s.ID); err == nil {
		t.Error("closed session should be gone from the registry")
	}
}

func TestOpenStatic_FetchesOverHTTP(t *testing.T) {
	l := newTestLens(t)
	srv := pageServer(t)

	s, err := l.OpenStatic(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if s.PageURL != srv.URL {
		t.Errorf("PageURL = %q, want %q", s.PageURL, srv.URL)
	}
	if got := s.Title(); got != "Test page" {
		t.Errorf("Title = %q, want %q", got, "Test page")
	}

	docs, err := s.Documents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0] != srv.URL {
		t.Errorf("Documents = %v", docs)
	}
}

func TestRulesetResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rulesets = []RulesetConfig{
		// Shadows the built-in preset of the same name.
		{Name: "landmarks", Preset: "landmarks", Class: "lens-x"},
		{Name: "links", Rules: []RuleConfig{{Selector: "a"}}},
	}
	l := New(cfg, WithLogger(quiet()))

	rs, err := l.Ruleset("landmarks")
	if err != nil {
		t.Fatal(err)
	}
	if rs.Class != "lens-x" {
		t.Errorf("configured ruleset should win: Class = %q", rs.Class)
	}

	rs, err = l.Ruleset("headings")
	if err != nil {
		t.Fatal(err)
	}
	if rs.Class != "domlens-heading" {
		t.Errorf("preset fallback Class = %q", rs.Class)
	}

	if _, err := l.Ruleset("nope"); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestResolveRuleset_Overrides(t *testing.T) {
	l := newTestLens(t)

	rs, err := l.ResolveRuleset("", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Name != "landmarks" {
		t.Errorf("default ruleset = %q, want landmarks", rs.Name)
	}

	rs, err = l.ResolveRuleset("headings", "audit-class", true)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Class != "audit-class" {
		t.Errorf("Class = %q, want audit-class", rs.Class)
	}
	if !rs.Draggable {
		t.Error("Draggable should be set")
	}

	if _, err := l.ResolveRuleset("headings", "bad class", false); !errors.Is(err, guard.ErrMarkerClass) {
		t.Errorf("error = %v, want guard.ErrMarkerClass", err)
	}
}

func TestWriteReport(t *testing.T) {
	l := newTestLens(t)
	ctx := context.Background()

	s, err := l.OpenStaticHTML(strings.NewReader(testPage), "test.html")
	if err != nil {
		t.Fatal(err)
	}
	rs, err := l.Ruleset("headings")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, rs); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	if err := l.WriteReport(ctx, s, rs, &b); err != nil {
		t.Fatal(err)
	}
	out := b.String()

	for _, want := range []string{
		"# DOM inspection: Test page",
		"- Pass: headings",
		"- Matches: 2 (2 visible)",
		"- Overlays created: 2",
		"## test.html",
		"h1: Welcome",
		"h2: Prices",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestSessionRender_ContainsOverlays(t *testing.T) {
	l := newTestLens(t)
	ctx := context.Background()

	s, err := l.OpenStaticHTML(strings.NewReader(testPage), "test.html")
	if err != nil {
		t.Fatal(err)
	}
	rs, err := l.Ruleset("headings")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, rs); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	if err := s.Render(ctx, &b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), rs.Class) {
		t.Errorf("render missing marker class %q", rs.Class)
	}
}

func TestOutputPath_RejectsTraversal(t *testing.T) {
	l := newTestLens(t)
	if _, err := l.OutputPath("../escape.png"); !errors.Is(err, guard.ErrPathTraversal) {
		t.Errorf("error = %v, want guard.ErrPathTraversal", err)
	}
}

func TestScreenshot_StaticNotSupported(t *testing.T) {
	l := newTestLens(t)

	s, err := l.OpenStaticHTML(strings.NewReader(testPage), "test.html")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.SaveScreenshot(context.Background(), s, "shot.png", false); !errors.Is(err, dom.ErrNotSupported) {
		t.Errorf("error = %v, want dom.ErrNotSupported", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}

	a := &Session{ID: "sess_a"}
	b := &Session{ID: "sess_b"}
	r.Put(a)
	r.Put(b)

	got, err := r.Get("sess_a")
	if err != nil || got != a {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := r.Get("sess_missing"); err == nil {
		t.Error("expected error for unknown ID")
	}

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("List len = %d, want 2", len(list))
	}
	if list[0].ID != "sess_a" || list[1].ID != "sess_b" {
		t.Errorf("List order = %s, %s", list[0].ID, list[1].ID)
	}

	if _, err := r.Remove("sess_a"); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestLensClose_ClosesSessions(t *testing.T) {
	l := newTestLens(t)

	if _, err := l.OpenStaticHTML(strings.NewReader(testPage), "a.html"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.OpenStaticHTML(strings.NewReader(testPage), "b.html"); err != nil {
		t.Fatal(err)
	}
	if got := len(l.Sessions()); got != 2 {
		t.Fatalf("Sessions = %d, want 2", got)
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if got := len(l.Sessions()); got != 0 {
		t.Errorf("Sessions after Close = %d, want 0", got)
	}
}
