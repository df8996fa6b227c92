// Package report renders inspection results into shareable artifacts:
// markdown summaries with converted element snippets, PNG screenshots, and
// PDF bundles built from captured pages.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/hazyhaar/domlens/overlay"
)

// Result is the material one report renders: what was inspected and what
// was found. Created is the overlay count when an add pass ran alongside
// the inspection; leave it zero for read-only passes.
type Result struct {
	Title       string
	PageURL     string
	Pass        string
	GeneratedAt time.Time
	Created     int
	Matches     []overlay.Match
}

// Writer renders results into markdown. Construction wires the sanitizer
// and the HTML-to-markdown converter once; a Writer is safe for reuse.
type Writer struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the writer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a report Writer.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Markdown renders a result as a markdown document: a header block, then
// one section per inspected document with its matches and converted
// element snippets.
func (w *Writer) Markdown(out io.Writer, res *Result) error {
	var b strings.Builder

	title := res.Title
	if title == "" {
		title = res.PageURL
	}
	genAt := res.GeneratedAt
	if genAt.IsZero() {
		genAt = time.Now()
	}
	visible := 0
	for _, m := range res.Matches {
		if m.Visible {
			visible++
		}
	}

	fmt.Fprintf(&b, "# DOM inspection: %s\n\n", title)
	fmt.Fprintf(&b, "- Page: %s\n", res.PageURL)
	if res.Pass != "" {
		fmt.Fprintf(&b, "- Pass: %s\n", res.Pass)
	}
	fmt.Fprintf(&b, "- Generated: %s\n", genAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Matches: %d (%d visible)\n", len(res.Matches), visible)
	if res.Created > 0 {
		fmt.Fprintf(&b, "- Overlays created: %d\n", res.Created)
	}
	b.WriteString("\n")

	for _, g := range groupByDocument(res.Matches) {
		fmt.Fprintf(&b, "## %s\n\n", g.url)
		for i, m := range g.matches {
			w.writeMatch(&b, i+1, m, res.PageURL)
		}
	}

	if _, err := io.WriteString(out, b.String()); err != nil {
		return fmt.Errorf("report: write markdown: %w", err)
	}
	w.logger.Debug("markdown report rendered",
		"page", res.PageURL, "matches", len(res.Matches))
	return nil
}

func (w *Writer) writeMatch(b *strings.Builder, n int, m overlay.Match, pageURL string) {
	heading := m.Label
	if heading == "" {
		heading = m.Tag
	}
	fmt.Fprintf(b, "### %d. %s\n\n", n, heading)

	visibility := "visible"
	if !m.Visible {
		visibility = "hidden"
	}
	fmt.Fprintf(b, "- `%s` matched `%s`, %s\n", m.Tag, m.Selector, visibility)
	fmt.Fprintf(b, "- box: %.0fx%.0f at (%.0f, %.0f)\n",
		m.Rect.Width, m.Rect.Height, m.Rect.X, m.Rect.Y)
	if m.Info != nil {
		for _, note := range m.Info.Notes {
			fmt.Fprintf(b, "- note: %s\n", note)
		}
	}
	b.WriteString("\n")

	if snippet := w.snippetMarkdown(m.HTML, pageURL); snippet != "" {
		for _, line := range strings.Split(snippet, "\n") {
			fmt.Fprintf(b, "> %s\n", line)
		}
		b.WriteString("\n")
	}
}

// snippetMarkdown sanitizes an element's outer HTML and converts it to
// markdown. Conversion failures and empty results drop the snippet rather
// than failing the report.
func (w *Writer) snippetMarkdown(html, sourceURL string) string {
	if html == "" {
		return ""
	}
	clean := w.policy.Sanitize(html)
	result, err := w.conv.ConvertString(clean, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(result) == "" {
		return ""
	}
	return strings.TrimSpace(result)
}

type docGroup struct {
	url     string
	matches []overlay.Match
}

// groupByDocument buckets matches per document, keeping first-seen order.
func groupByDocument(matches []overlay.Match) []docGroup {
	var groups []docGroup
	index := make(map[string]int)
	for _, m := range matches {
		i, ok := index[m.Document]
		if !ok {
			i = len(groups)
			index[m.Document] = i
			groups = append(groups, docGroup{url: m.Document})
		}
		groups[i].matches = append(groups[i].matches, m)
	}
	return groups
}

// SavePNG writes screenshot bytes to path.
func SavePNG(path string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("report: empty screenshot")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write screenshot: %w", err)
	}
	return nil
}

// BindPDF assembles captured screenshots into a single PDF, one page per
// image, in the order given.
func BindPDF(outPath string, imagePaths []string) error {
	if len(imagePaths) == 0 {
		return fmt.Errorf("report: no images to bind")
	}
	if err := api.ImportImagesFile(imagePaths, outPath, nil, nil); err != nil {
		return fmt.Errorf("report: bind pdf: %w", err)
	}
	return nil
}
