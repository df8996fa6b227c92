// Package assets carries the embedded overlay stylesheet and the JS
// primitives the live provider evaluates inside inspected pages, plus a
// small HTTP server so pages can load the stylesheet from localhost.
package assets

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Class and attribute names shared between the stylesheet and the
// providers. Marker classes supplied by callers come on top of BaseClass.
const (
	BaseClass  = "domlens-overlay"
	LabelClass = "domlens-overlay-label"
	DragClass  = "domlens-draggable"
	IDAttr     = "data-domlens-id"

	// CSSFileName is written next to annotated static output so the
	// stylesheet link resolves when the file is opened locally.
	CSSFileName = "domlens-overlay.css"
)

//go:embed overlay.css
var OverlayCSS string

// JS primitives, each a single function expression evaluated via CDP.

//go:embed ensure_stylesheet.js
var EnsureStylesheetJS string

//go:embed insert_overlay.js
var InsertOverlayJS string

//go:embed remove_overlays.js
var RemoveOverlaysJS string

//go:embed drag.js
var DragJS string

// JSFunc strips the leading comment lines from an embedded primitive,
// leaving the bare function expression CDP evaluation expects. Without the
// strip, eval wraps the source as `return // comment` and yields undefined.
func JSFunc(src string) string {
	rest := src
	for {
		line, tail, found := strings.Cut(rest, "\n")
		trimmed := strings.TrimSpace(line)
		if found && (trimmed == "" || strings.HasPrefix(trimmed, "//")) {
			rest = tail
			continue
		}
		return strings.TrimSpace(rest)
	}
}

// Handler serves the overlay assets.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/overlay.css", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		// Inspected pages load this cross-origin from file:// and http://.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write([]byte(OverlayCSS))
	})
	r.Get("/drag.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write([]byte(DragJS))
	})
	return r
}

// CSSHref returns the stylesheet URL served by an asset server on addr.
func CSSHref(addr string) string {
	return "http://" + addr + "/overlay.css"
}

// WriteCSS writes the stylesheet to path.
func WriteCSS(path string) error {
	if err := os.WriteFile(path, []byte(OverlayCSS), 0o644); err != nil {
		return fmt.Errorf("assets: write stylesheet: %w", err)
	}
	return nil
}

// Serve runs the asset server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("asset server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("assets: serve: %w", err)
	}
	logger.Info("asset server stopped")
	return nil
}
