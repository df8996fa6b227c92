package lens

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domlens/idgen"
	"github.com/hazyhaar/domlens/kit"
	"github.com/hazyhaar/domlens/overlay"
)

// RegisterMCP registers domlens tools on an MCP server.
func (l *Lens) RegisterMCP(srv *mcp.Server) {
	l.registerOpenTool(srv)
	l.registerDocumentsTool(srv)
	l.registerAddTool(srv)
	l.registerRemoveTool(srv)
	l.registerInspectTool(srv)
	l.registerScreenshotTool(srv)
	l.registerReportTool(srv)
	l.registerCloseTool(srv)
}

// ServeMCP serves the tools over stdio until the client disconnects or the
// context is cancelled.
func (l *Lens) ServeMCP(ctx context.Context, version string) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "domlens",
		Version: version,
	}, nil)
	l.RegisterMCP(srv)

	ss, err := srv.Connect(ctx, &mcp.IOTransport{Reader: os.Stdin, Writer: os.Stdout}, nil)
	if err != nil {
		return fmt.Errorf("lens: mcp connect: %w", err)
	}
	l.logger.Info("MCP serving", "transport", "stdio")
	if err := ss.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("lens: mcp session: %w", err)
	}
	return nil
}

// register wires one tool with the shared middleware stack: request IDs
// stamped when missing, then per-call logging.
func (l *Lens) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	wrap := kit.Chain(
		kit.RequestID(idgen.Default),
		kit.Logging(l.logger, tool.Name),
	)
	kit.RegisterMCPTool(srv, tool, wrap(endpoint), decode)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func mcpContext(ctx context.Context) context.Context {
	return kit.WithTransport(ctx, "mcp")
}

// --- open ---

type openRequest struct {
	URL  string `json:"url"`
	Mode string `json:"mode,omitempty"`
}

type openResult struct {
	SessionID string   `json:"session_id"`
	Kind      string   `json:"kind"`
	URL       string   `json:"url"`
	Title     string   `json:"title,omitempty"`
	Documents []string `json:"documents,omitempty"`
}

func (l *Lens) registerOpenTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_open",
		Description: "Open a page for inspection and return a session ID. Static mode fetches and parses the HTML; live mode drives a real browser tab.",
		InputSchema: inputSchema(map[string]any{
			"url":  map[string]any{"type": "string", "description": "Page URL (http or https)"},
			"mode": map[string]any{"type": "string", "enum": []any{"static", "live"}, "description": "Session kind (default: static)"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*openRequest)
		var (
			s   *Session
			err error
		)
		switch strings.ToLower(r.Mode) {
		case "", KindStatic:
			s, err = l.OpenStatic(ctx, r.URL)
		case KindLive:
			s, err = l.OpenLive(ctx, r.URL)
		default:
			return nil, fmt.Errorf("lens: unknown mode %q", r.Mode)
		}
		if err != nil {
			return nil, err
		}
		docs, _ := s.Documents(ctx)
		return &openResult{
			SessionID: s.ID,
			Kind:      s.Kind,
			URL:       s.PageURL,
			Title:     s.Title(),
			Documents: docs,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r openRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	l.register(srv, tool, endpoint, decode)
}

// --- documents ---

type documentsRequest struct {
	SessionID string `json:"session_id"`
}

type documentsResult struct {
	Documents []string `json:"documents"`
}

func (l *Lens) registerDocumentsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_documents",
		Description: "List the reachable documents of a session: the page plus its same-origin iframes.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session ID from domlens_open"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*documentsRequest)
		s, err := l.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		docs, err := s.Documents(ctx)
		if err != nil {
			return nil, err
		}
		return &documentsResult{Documents: docs}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r documentsRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	l.register(srv, tool, endpoint, decode)
}

// --- add ---

type addRequest struct {
	SessionID string `json:"session_id"`
	Ruleset   string `json:"ruleset,omitempty"`
	Class     string `json:"class,omitempty"`
	Draggable bool   `json:"draggable,omitempty"`
}

type addResult struct {
	SessionID string `json:"session_id"`
	Ruleset   string `json:"ruleset"`
	Class     string `json:"class"`
	Created   int    `json:"created"`
}

func (l *Lens) registerAddTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_add",
		Description: "Draw overlays on every visible element a ruleset matches, across all reachable documents. Returns how many overlays were created.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session ID from domlens_open"},
			"ruleset":    map[string]any{"type": "string", "description": "Configured ruleset or built-in preset name (default from config)"},
			"class":      map[string]any{"type": "string", "description": "Marker class override"},
			"draggable":  map[string]any{"type": "boolean", "description": "Make overlays draggable"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*addRequest)
		s, err := l.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		rs, err := l.ResolveRuleset(r.Ruleset, r.Class, r.Draggable)
		if err != nil {
			return nil, err
		}
		n, err := s.Add(ctx, rs)
		if err != nil {
			return nil, err
		}
		return &addResult{SessionID: s.ID, Ruleset: rs.Name, Class: rs.Class, Created: n}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r addRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	l.register(srv, tool, endpoint, decode)
}

// --- remove ---

type removeRequest struct {
	SessionID string `json:"session_id"`
	Class     string `json:"class"`
}

type removeResult struct {
	SessionID string `json:"session_id"`
	Class     string `json:"class"`
	Removed   int    `json:"removed"`
}

func (l *Lens) registerRemoveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_remove",
		Description: "Remove every overlay carrying a marker class. Removing a class that was never added returns zero.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session ID from domlens_open"},
			"class":      map[string]any{"type": "string", "description": "Marker class to remove"},
		}, []string{"session_id", "class"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*removeRequest)
		s, err := l.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		n, err := s.Remove(ctx, r.Class)
		if err != nil {
			return nil, err
		}
		return &removeResult{SessionID: s.ID, Class: r.Class, Removed: n}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r removeRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	l.register(srv, tool, endpoint, decode)
}

// --- inspect ---

type inspectRequest struct {
	SessionID  string `json:"session_id"`
	Ruleset    string `json:"ruleset,omitempty"`
	MaxSnippet int    `json:"max_snippet,omitempty"`
}

type inspectResult struct {
	Count   int             `json:"count"`
	Visible int             `json:"visible"`
	Matches []overlay.Match `json:"matches"`
}

func (l *Lens) registerInspectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_inspect",
		Description: "Report every element a ruleset would mark, including invisible ones, without touching the page.",
		InputSchema: inputSchema(map[string]any{
			"session_id":  map[string]any{"type": "string", "description": "Session ID from domlens_open"},
			"ruleset":     map[string]any{"type": "string", "description": "Configured ruleset or built-in preset name (default from config)"},
			"max_snippet": map[string]any{"type": "integer", "description": "Max HTML excerpt length per match"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*inspectRequest)
		s, err := l.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		rs, err := l.ResolveRuleset(r.Ruleset, "", false)
		if err != nil {
			return nil, err
		}
		matches, err := s.Inspect(ctx, rs, r.MaxSnippet)
		if err != nil {
			return nil, err
		}
		visible := 0
		for _, m := range matches {
			if m.Visible {
				visible++
			}
		}
		return &inspectResult{Count: len(matches), Visible: visible, Matches: matches}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r inspectRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	l.register(srv, tool, endpoint, decode)
}

// --- screenshot ---

type screenshotRequest struct {
	SessionID string `json:"session_id"`
	File      string `json:"file,omitempty"`
	FullPage  bool   `json:"full_page,omitempty"`
}

type screenshotResult struct {
	Path string `json:"path"`
}

func (l *Lens) registerScreenshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_screenshot",
		Description: "Capture a live session as PNG into the output directory. Static sessions cannot be captured.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session ID from domlens_open"},
			"file":       map[string]any{"type": "string", "description": "File name inside the output directory (default: a timestamped name)"},
			"full_page":  map[string]any{"type": "boolean", "description": "Capture the full scroll height"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*screenshotRequest)
		s, err := l.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		path, err := l.SaveScreenshot(ctx, s, r.File, r.FullPage)
		if err != nil {
			return nil, err
		}
		return &screenshotResult{Path: path}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r screenshotRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	l.register(srv, tool, endpoint, decode)
}

// --- report ---

type reportRequest struct {
	SessionID string `json:"session_id"`
	Ruleset   string `json:"ruleset,omitempty"`
	File      string `json:"file,omitempty"`
}

type reportResult struct {
	Path     string `json:"path,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

func (l *Lens) registerReportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_report",
		Description: "Write a Markdown inspection report for a ruleset. With a file name the report lands in the output directory; without one it is returned inline.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session ID from domlens_open"},
			"ruleset":    map[string]any{"type": "string", "description": "Configured ruleset or built-in preset name (default from config)"},
			"file":       map[string]any{"type": "string", "description": "File name inside the output directory; empty returns the Markdown inline"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*reportRequest)
		s, err := l.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		rs, err := l.ResolveRuleset(r.Ruleset, "", false)
		if err != nil {
			return nil, err
		}

		var b strings.Builder
		if err := l.WriteReport(ctx, s, rs, &b); err != nil {
			return nil, err
		}
		if r.File == "" {
			return &reportResult{Markdown: b.String()}, nil
		}
		path, err := l.OutputPath(r.File)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return nil, fmt.Errorf("lens: write report: %w", err)
		}
		return &reportResult{Path: path}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r reportRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	l.register(srv, tool, endpoint, decode)
}

// --- close ---

type closeRequest struct {
	SessionID string `json:"session_id"`
}

type closeResult struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

func (l *Lens) registerCloseTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_close",
		Description: "Close a session and release its page.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session ID from domlens_open"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*closeRequest)
		if err := l.CloseSession(r.SessionID); err != nil {
			return nil, err
		}
		return &closeResult{SessionID: r.SessionID, Closed: true}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r closeRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	l.register(srv, tool, endpoint, decode)
}
