// Package mcpserver exposes the search engine over the Model Context
// Protocol on stdio, so agent runtimes can call it as a tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/serpforge/serpforge/internal/logger"
	"github.com/serpforge/serpforge/internal/search"
	"github.com/serpforge/serpforge/internal/version"
)

// Server hosts the MCP tool surface over a long-lived engine so browser
// state and fingerprint persist across tool calls.
type Server struct {
	engine      *search.Engine
	stateFile   string
	noSaveState bool
}

// Options configure the MCP server.
type Options struct {
	// StateFile overrides the browser-state path used for every tool call.
	StateFile string
	// NoSaveState disables state persistence for every tool call.
	NoSaveState bool
}

// New creates an MCP server around a fresh engine.
func New(opts Options) *Server {
	return &Server{
		engine:      search.NewEngine(),
		stateFile:   opts.StateFile,
		noSaveState: opts.NoSaveState,
	}
}

type searchArgs struct {
	Query   string `json:"query" jsonschema:"the search query string"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"overall budget in milliseconds (default 60000)"`
}

type htmlArgs struct {
	Query      string `json:"query" jsonschema:"the search query string"`
	Timeout    int    `json:"timeout,omitempty" jsonschema:"overall budget in milliseconds (default 60000)"`
	SaveToFile bool   `json:"saveToFile,omitempty" jsonschema:"also save the page markup and a screenshot to disk"`
	OutputPath string `json:"outputPath,omitempty" jsonschema:"file path for the saved markup (implies saveToFile)"`
}

// Run serves the tools on stdio until the context is canceled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "serpforge",
		Version: version.Version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "google-search",
		Description: "Run a Google search in a real browser and return structured results. " +
			"Handles bot-verification pages automatically and keeps a persistent " +
			"browser identity between calls.",
	}, s.handleSearch)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "get-webpage-html",
		Description: "Run a Google search and return the sanitized HTML of the results " +
			"page instead of extracted results, optionally saving it to disk with a screenshot.",
	}, s.handleHTML)

	logger.Info("mcp server listening on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, any, error) {
	resp, err := s.engine.Search(ctx, search.Request{
		Query:       args.Query,
		Limit:       args.Limit,
		TimeoutMs:   args.Timeout,
		StateFile:   s.stateFile,
		NoSaveState: s.noSaveState,
	})
	if resp == nil {
		return errorResult(err), nil, nil
	}
	// On failure resp degrades to a synthetic result; the model still gets
	// renderable content rather than a protocol error.
	return jsonResult(resp)
}

func (s *Server) handleHTML(ctx context.Context, _ *mcp.CallToolRequest, args htmlArgs) (*mcp.CallToolResult, any, error) {
	resp, err := s.engine.CaptureHTML(ctx, search.Request{
		Query:       args.Query,
		TimeoutMs:   args.Timeout,
		StateFile:   s.stateFile,
		NoSaveState: s.noSaveState,
	}, search.HTMLOptions{
		SaveToFile: args.SaveToFile || args.OutputPath != "",
		OutputPath: args.OutputPath,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}

	// The markup itself can be hundreds of kilobytes; when it was saved to
	// disk the payload carries the path instead of the full body.
	if resp.SavedPath != "" {
		return jsonResult(map[string]any{
			"query":               resp.Query,
			"url":                 resp.URL,
			"savedPath":           resp.SavedPath,
			"screenshotPath":      resp.ScreenshotPath,
			"originalHtmlLength":  resp.OriginalHTMLLength,
			"sanitizedHtmlLength": len(resp.HTML),
		})
	}
	return jsonResult(resp)
}

// jsonResult wraps a payload as a single JSON text block.
func jsonResult(payload any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("marshal tool result: %w", err)), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult converts a failure into a text payload instead of a
// protocol error, so callers always receive renderable content.
func errorResult(err error) *mcp.CallToolResult {
	logger.Error("tool call failed", "error", err)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}
