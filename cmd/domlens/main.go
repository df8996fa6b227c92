// Command domlens marks up web pages with accessibility overlays.
//
// Usage:
//
//	domlens -url https://example.com -preset landmarks          # live browser pass
//	domlens -html page.html -preset headings -out marked.html   # static pass
//	domlens -mcp                                                # serve MCP tools on stdio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hazyhaar/domlens/assets"
	"github.com/hazyhaar/domlens/lens"
	"github.com/hazyhaar/domlens/report"
)

const version = "0.1.0"

type options struct {
	liveURL    string
	htmlPath   string
	configPath string

	presets   string
	class     string
	draggable bool
	labels    bool

	removeClass string

	outPath        string
	screenshotPath string
	reportPath     string
	pdfPath        string

	serveAssets string
	hold        bool
	mcp         bool

	remoteURL string
	headless  bool
	stealth   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.liveURL, "url", "", "open this URL in a live browser tab")
	flag.StringVar(&opts.htmlPath, "html", "", "annotate a local HTML file (- for stdin)")
	flag.StringVar(&opts.configPath, "config", "", "path to domlens.yaml config file")
	flag.StringVar(&opts.presets, "preset", "", "comma-separated rulesets or presets (default from config)")
	flag.StringVar(&opts.class, "class", "", "marker class override")
	flag.BoolVar(&opts.draggable, "draggable", false, "make overlays draggable")
	flag.BoolVar(&opts.labels, "labels", true, "render overlay labels")
	flag.StringVar(&opts.removeClass, "remove", "", "remove overlays with this marker class instead of adding")
	flag.StringVar(&opts.outPath, "out", "", "write the annotated HTML here (static mode)")
	flag.StringVar(&opts.screenshotPath, "screenshot", "", "write a PNG screenshot here (live mode)")
	flag.StringVar(&opts.reportPath, "report", "", "write a Markdown inspection report here")
	flag.StringVar(&opts.pdfPath, "pdf", "", "bind the screenshot into a PDF here (needs -screenshot)")
	flag.StringVar(&opts.serveAssets, "serve-assets", "", "serve overlay assets on this address (host:port)")
	flag.BoolVar(&opts.hold, "hold", false, "keep the browser open until interrupted (live mode)")
	flag.BoolVar(&opts.mcp, "mcp", false, "serve MCP tools on stdio")
	flag.StringVar(&opts.remoteURL, "remote-url", "", "connect to a running Chrome at this WebSocket URL")
	flag.BoolVar(&opts.headless, "headless", true, "run the browser headless")
	flag.BoolVar(&opts.stealth, "stealth", false, "apply anti-automation-detection setup to tabs")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts); err != nil {
		logger.Error("domlens: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	l := lens.New(cfg, lens.WithLogger(logger))
	defer l.Close()

	if opts.mcp {
		return l.ServeMCP(ctx, version)
	}

	if opts.serveAssets != "" {
		go func() {
			if err := assets.Serve(ctx, opts.serveAssets, logger); err != nil {
				logger.Error("asset server", "error", err)
			}
		}()
		l.SetStylesheet(assets.CSSHref(opts.serveAssets))
	} else if opts.htmlPath != "" && opts.outPath != "" {
		// Annotated static output links the stylesheet written beside it.
		l.SetStylesheet(assets.CSSFileName)
	}

	var s *lens.Session
	switch {
	case opts.liveURL != "":
		s, err = l.OpenLive(ctx, opts.liveURL)
	case opts.htmlPath != "":
		s, err = openStaticFile(l, opts.htmlPath)
	default:
		fmt.Fprintln(os.Stderr, "usage: domlens -url <url> | -html <file> | -mcp")
		os.Exit(1)
	}
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	return runSession(ctx, logger, l, s, opts)
}

func loadConfig(opts options) (*lens.Config, error) {
	cfg := lens.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := lens.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if opts.remoteURL != "" {
		cfg.Browser.Remote = opts.remoteURL
	}
	if !opts.headless {
		cfg.Browser.Headful = true
	}
	if opts.stealth {
		cfg.Browser.Stealth = true
	}
	return cfg, nil
}

func openStaticFile(l *lens.Lens, path string) (*lens.Session, error) {
	if path == "-" {
		return l.OpenStaticHTML(os.Stdin, "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.OpenStaticHTML(f, filepath.Base(path))
}

// result is the JSON line printed to stdout when a pass finishes.
type result struct {
	Session    string   `json:"session"`
	Kind       string   `json:"kind"`
	URL        string   `json:"url,omitempty"`
	Documents  []string `json:"documents,omitempty"`
	Created    int      `json:"created,omitempty"`
	Removed    int      `json:"removed,omitempty"`
	Classes    []string `json:"classes,omitempty"`
	Out        string   `json:"out,omitempty"`
	Screenshot string   `json:"screenshot,omitempty"`
	Report     string   `json:"report,omitempty"`
	PDF        string   `json:"pdf,omitempty"`
}

func runSession(ctx context.Context, logger *slog.Logger, l *lens.Lens, s *lens.Session, opts options) error {
	res := result{Session: s.ID, Kind: s.Kind, URL: s.PageURL}

	docs, err := s.Documents(ctx)
	if err != nil {
		return fmt.Errorf("documents: %w", err)
	}
	res.Documents = docs

	var reportRS *lens.Ruleset
	if opts.removeClass != "" {
		n, err := s.Remove(ctx, opts.removeClass)
		if err != nil {
			return fmt.Errorf("remove %s: %w", opts.removeClass, err)
		}
		res.Removed = n
	} else {
		rulesets, err := rulesetsFor(l, opts)
		if err != nil {
			return err
		}
		for _, rs := range rulesets {
			n, err := s.Add(ctx, rs)
			if err != nil {
				return fmt.Errorf("add %s: %w", rs.Name, err)
			}
			res.Created += n
		}
		res.Classes = s.ClassNames()
		reportRS = rulesets[0]
	}

	if opts.outPath != "" {
		if err := writeAnnotated(ctx, logger, s, opts.outPath); err != nil {
			return err
		}
		res.Out = opts.outPath
	}
	if opts.screenshotPath != "" {
		data, err := s.Screenshot(ctx, true)
		if err != nil {
			return fmt.Errorf("screenshot: %w", err)
		}
		if err := report.SavePNG(opts.screenshotPath, data); err != nil {
			return err
		}
		res.Screenshot = opts.screenshotPath
	}
	if opts.reportPath != "" {
		if reportRS == nil {
			if reportRS, err = l.DefaultRuleset(); err != nil {
				return err
			}
		}
		f, err := os.Create(opts.reportPath)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := l.WriteReport(ctx, s, reportRS, f); err != nil {
			f.Close()
			return fmt.Errorf("report: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		res.Report = opts.reportPath
	}
	if opts.pdfPath != "" {
		if opts.screenshotPath == "" {
			return fmt.Errorf("-pdf needs -screenshot")
		}
		if err := report.BindPDF(opts.pdfPath, []string{opts.screenshotPath}); err != nil {
			return err
		}
		res.PDF = opts.pdfPath
	}

	if opts.hold && s.Kind == lens.KindLive {
		logger.Info("holding browser open", "url", s.PageURL)
		<-ctx.Done()
	}

	return printResult(res)
}

// rulesetsFor resolves the -preset list, or the configured default when the
// flag is empty, and applies the CLI overrides to each.
func rulesetsFor(l *lens.Lens, opts options) ([]*lens.Ruleset, error) {
	var names []string
	for _, name := range strings.Split(opts.presets, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	var out []*lens.Ruleset
	if len(names) == 0 {
		rs, err := l.ResolveRuleset("", opts.class, opts.draggable)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	for _, name := range names {
		rs, err := l.ResolveRuleset(name, opts.class, opts.draggable)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	if !opts.labels {
		for _, rs := range out {
			rs.DisableLabels()
		}
	}
	return out, nil
}

// writeAnnotated renders the annotated tree and drops the overlay
// stylesheet next to it so the file works without an asset server.
func writeAnnotated(ctx context.Context, logger *slog.Logger, s *lens.Session, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create out: %w", err)
	}
	if err := s.Render(ctx, f); err != nil {
		f.Close()
		return fmt.Errorf("render: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	cssPath := filepath.Join(filepath.Dir(outPath), assets.CSSFileName)
	if err := assets.WriteCSS(cssPath); err != nil {
		logger.Warn("write stylesheet", "path", cssPath, "error", err)
	}
	return nil
}

func printResult(res result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
	return nil
}
