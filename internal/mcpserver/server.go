// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the theory tree and its documents to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/theoria/internal/apperr"
	"github.com/starford/theoria/internal/index"
	"github.com/starford/theoria/internal/theory"
	"github.com/starford/theoria/internal/theoryservice"
)

const structureURI = "theoria://structure"

// Backend is the subset of the theory service the tools call.
type Backend interface {
	Structure(ctx context.Context) *theory.Structure
	Topics(ctx context.Context) []theoryservice.Topic
	Content(ctx context.Context, path string) (theory.Rendered, error)
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)
}

var _ Backend = (*theoryservice.Service)(nil)

// Server wraps the MCP server with the theory tools.
type Server struct {
	mcp     *server.MCPServer
	backend Backend
}

// New creates a new MCP server with all tools registered.
func New(backend Backend, version string) *Server {
	s := &Server{backend: backend}

	s.mcp = server.NewMCPServer(
		"Theoria",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_topics",
		mcp.WithDescription("List top-level theory topics with the number of documents in each."),
	), s.listTopics)

	s.mcp.AddTool(mcp.NewTool("get_structure",
		mcp.WithDescription("Return the theory tree (topics, nested categories and files) as JSON. "+
			"Pass a topic to return only that subtree."),
		mcp.WithString("topic", mcp.Description("Optional topic id, e.g. supervised")),
	), s.getStructure)

	s.mcp.AddTool(mcp.NewTool("read_content",
		mcp.WithDescription("Read one theory document. Returns its title and rendered HTML body."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Content path, with or without .md (e.g. supervised/01-linear-regression)")),
	), s.readContent)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Full-text search over document titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchContent)

	s.mcp.AddResource(
		mcp.NewResource(structureURI, "Theory Structure",
			mcp.WithResourceDescription("The full theory tree in display order."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStructureResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listTopics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.backend.Topics(ctx))
}

func (s *Server) getStructure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.backend.Structure(ctx)
	topic, err := req.RequireString("topic")
	if err != nil || topic == "" {
		return jsonResult(st)
	}
	cat := st.Topic(topic)
	if cat == nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown topic: %s", topic)), nil
	}
	return jsonResult(cat)
}

func (s *Server) readContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.backend.Content(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.backend.Search(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readStructureResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.backend.Structure(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: structure: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      structureURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
