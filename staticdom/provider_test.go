package staticdom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/domlens/assets"
	"github.com/hazyhaar/domlens/dom"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustParse(t *testing.T, src string, opts ...Option) *Provider {
	t.Helper()
	opts = append([]Option{WithLogger(quiet())}, opts...)
	p, err := ParseString(src, opts...)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Sample Page</title></head>
<body>
  <nav><a href="/">Home</a><a href="/docs">Docs</a></nav>
  <main>
    <h1>Sample</h1>
    <img src="a.png" alt="diagram">
    <img src="b.png">
  </main>
</body>
</html>`

func TestQuery_MatchesSelector(t *testing.T) {
	p := mustParse(t, samplePage)

	els, err := p.main.Query("nav a")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("nav a: got %d elements, want 2", len(els))
	}
	if got := els[0].Tag(); got != "a" {
		t.Errorf("tag: got %q, want %q", got, "a")
	}
	href, err := els[1].Attr("href")
	if err != nil {
		t.Fatalf("attr: %v", err)
	}
	if href == nil || *href != "/docs" {
		t.Errorf("href: got %v, want /docs", href)
	}
}

func TestQuery_MalformedSelectorErrors(t *testing.T) {
	p := mustParse(t, samplePage)

	if _, err := p.main.Query("div["); err == nil {
		t.Fatal("expected error for malformed selector")
	}
	if _, err := p.main.Query(":::nope"); err == nil {
		t.Fatal("expected error for malformed pseudo selector")
	}
}

func TestEnsureStylesheet_Idempotent(t *testing.T) {
	p := mustParse(t, samplePage)
	href := "http://127.0.0.1:7007/overlay.css"

	added, err := p.main.EnsureStylesheet(href)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if !added {
		t.Fatal("first ensure: got added=false, want true")
	}

	added, err = p.main.EnsureStylesheet(href)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if added {
		t.Fatal("second ensure: got added=true, want false")
	}

	links, err := p.main.Query(`link[rel=stylesheet][href="` + href + `"]`)
	if err != nil {
		t.Fatalf("query links: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("stylesheet links: got %d, want 1", len(links))
	}
}

func TestInsertRemove_RoundTrip(t *testing.T) {
	p := mustParse(t, samplePage)

	for i := 0; i < 3; i++ {
		ov := dom.Overlay{
			ID:    fmt.Sprintf("ov-%d", i),
			Class: "hl",
			Label: fmt.Sprintf("item %d", i),
			Title: fmt.Sprintf("item %d", i),
			Rect:  dom.Rect{X: 10, Y: float64(20 * i), Width: 100, Height: 16},
		}
		if err := p.main.InsertOverlay(ov); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	divs, err := p.main.Query("div.hl")
	if err != nil {
		t.Fatalf("query markers: %v", err)
	}
	if len(divs) != 3 {
		t.Fatalf("markers after insert: got %d, want 3", len(divs))
	}
	// Inserted markers carry the base class and the id attribute.
	cls, _ := divs[0].Attr("class")
	if cls == nil || !strings.Contains(*cls, assets.BaseClass) {
		t.Errorf("marker class: got %v, want to contain %q", cls, assets.BaseClass)
	}
	id, _ := divs[0].Attr(assets.IDAttr)
	if id == nil || *id == "" {
		t.Error("marker id attribute missing")
	}

	removed, err := p.main.RemoveByClass("hl")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed: got %d, want 3", removed)
	}

	removed, err = p.main.RemoveByClass("hl")
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if removed != 0 {
		t.Fatalf("second remove: got %d, want 0", removed)
	}
}

func TestRemoveByClass_LeavesOtherClassesAlone(t *testing.T) {
	p := mustParse(t, samplePage)

	if err := p.main.InsertOverlay(dom.Overlay{ID: "a", Class: "one"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := p.main.InsertOverlay(dom.Overlay{ID: "b", Class: "two"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	removed, err := p.main.RemoveByClass("one")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed: got %d, want 1", removed)
	}
	left, err := p.main.Query("div.two")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(left) != 1 {
		t.Fatalf("surviving markers: got %d, want 1", len(left))
	}
}

func TestRemoveByClass_MalformedClassErrors(t *testing.T) {
	p := mustParse(t, samplePage)
	if _, err := p.main.RemoveByClass("bad["); err == nil {
		t.Fatal("expected error for malformed class")
	}
}

func TestDocuments_SameOriginIframesOnly(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>other origin</p></body></html>`)
	}))
	defer other.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprintf(w, `<html><body>
				<iframe src="/frame.html"></iframe>
				<iframe src="%s/widget"></iframe>
				<iframe></iframe>
			</body></html>`, other.URL)
		case "/frame.html":
			fmt.Fprint(w, `<html><body><button>Inside frame</button></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{Client: srv.Client(), Logger: quiet()})
	p, err := FetchPage(context.Background(), f, srv.URL+"/", WithLogger(quiet()))
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}

	docs, err := p.Documents(context.Background())
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("documents: got %d, want 2 (main + same-origin frame)", len(docs))
	}
	if docs[0].URL() != srv.URL+"/" {
		t.Errorf("main url: got %q, want %q", docs[0].URL(), srv.URL+"/")
	}
	if want := srv.URL + "/frame.html"; docs[1].URL() != want {
		t.Errorf("frame url: got %q, want %q", docs[1].URL(), want)
	}

	btns, err := docs[1].Query("button")
	if err != nil {
		t.Fatalf("query frame: %v", err)
	}
	if len(btns) != 1 {
		t.Fatalf("frame buttons: got %d, want 1", len(btns))
	}
}

func TestDocuments_FrameAnnotationsSurviveRecomputation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			fmt.Fprint(w, `<html><body><iframe src="/inner"></iframe></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><p>inner</p></body></html>`)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{Client: srv.Client(), Logger: quiet()})
	p, err := FetchPage(context.Background(), f, srv.URL+"/", WithLogger(quiet()))
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}

	ctx := context.Background()
	docs, err := p.Documents(ctx)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("documents: got %d, want 2", len(docs))
	}
	if err := docs[1].InsertOverlay(dom.Overlay{ID: "x", Class: "hl"}); err != nil {
		t.Fatalf("insert into frame: %v", err)
	}

	// The next enumeration must hand back the same frame document so the
	// annotation can still be found and removed.
	docs, err = p.Documents(ctx)
	if err != nil {
		t.Fatalf("documents again: %v", err)
	}
	removed, err := docs[1].RemoveByClass("hl")
	if err != nil {
		t.Fatalf("remove from frame: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed from frame: got %d, want 1", removed)
	}
}

func TestDocuments_NoFetcherSkipsIframes(t *testing.T) {
	p := mustParse(t, `<html><body><iframe src="http://example.com/frame"></iframe></body></html>`,
		WithURL("http://example.com/"))

	docs, err := p.Documents(context.Background())
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("documents: got %d, want 1", len(docs))
	}
}

func TestRender_InlinesDragScriptOnce(t *testing.T) {
	p := mustParse(t, samplePage)

	ov := dom.Overlay{ID: "d1", Class: "hl", Label: "drag me", Draggable: true}
	if err := p.main.InsertOverlay(ov); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var first, second strings.Builder
	if err := p.Render(&first); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := p.Render(&second); err != nil {
		t.Fatalf("second render: %v", err)
	}

	out := second.String()
	if !strings.Contains(out, assets.DragClass) {
		t.Error("rendered output missing drag class")
	}
	if got := strings.Count(out, `data-domlens="drag"`); got != 1 {
		t.Errorf("drag script tags: got %d, want 1", got)
	}
	if !strings.Contains(out, "__domlensDrag") {
		t.Error("rendered output missing drag script body")
	}
}

func TestRender_WithoutDraggableHasNoScript(t *testing.T) {
	p := mustParse(t, samplePage)
	if err := p.main.InsertOverlay(dom.Overlay{ID: "s1", Class: "hl"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var out strings.Builder
	if err := p.Render(&out); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out.String(), `data-domlens="drag"`) {
		t.Error("drag script inlined for non-draggable overlays")
	}
}

func TestTitle(t *testing.T) {
	p := mustParse(t, samplePage)
	if got := p.Title(); got != "Sample Page" {
		t.Errorf("title: got %q, want %q", got, "Sample Page")
	}
}
