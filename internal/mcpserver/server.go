// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes frontedit tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/frontedit/internal/document"
	"github.com/starford/frontedit/internal/index"
	"github.com/starford/frontedit/internal/session"
	"github.com/starford/frontedit/internal/storage"
	"github.com/starford/frontedit/internal/validate"
)

const contractURI = "frontedit://field-contract"

// Server wraps the MCP server with frontedit tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    index.FileIndex
	rules session.Resolver
}

// New creates a new MCP server with all frontedit tools registered. rules
// supply the declared fields and validation schemas per file.
func New(store storage.Provider, db index.FileIndex, rules session.Resolver) *Server {
	s := &Server{store: store, db: db, rules: rules}

	s.mcp = server.NewMCPServer(
		"frontedit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Search content files by path, title, field names and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchFiles)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List Markdown and JSON content files, optionally in one folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the raw content of a content file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file (e.g. posts/hello.md)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("infer_fields",
		mcp.WithDescription("Return the form field tree inferred from a content file as JSON. "+
			"See get_field_contract for the field format."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file")),
	), s.inferFields)

	s.mcp.AddTool(mcp.NewTool("validate_file",
		mcp.WithDescription("Check a content file's data against the validation schema configured for it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file")),
	), s.validateFile)

	s.mcp.AddTool(mcp.NewTool("get_field_contract",
		mcp.WithDescription("Returns the description of the field tree and the validation rules."),
	), s.getFieldContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Field Contract",
			mcp.WithResourceDescription("Format of inferred form fields and validation messages."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) searchFiles(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFiles(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}
	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, len(metas))
	for i, m := range metas {
		paths[i] = m.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) inferFields(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := s.load(req)
	if errResult != nil {
		return errResult, nil
	}
	tree, err := session.Fields(doc, s.rules.Resolve(doc.Path).Fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) validateFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := s.load(req)
	if errResult != nil {
		return errResult, nil
	}
	rules := s.rules.Resolve(doc.Path)
	data := doc.Data()
	errs := validate.Validate(data, rules.Validation)
	if rules.Strict != nil {
		errs = append(errs, rules.Strict.Validate(data)...)
	}
	if len(errs) == 0 {
		return mcp.NewToolResultText("valid"), nil
	}
	return mcp.NewToolResultText(strings.Join(errs, "\n")), nil
}

// load reads and parses the file named by the path argument.
func (s *Server) load(req mcp.CallToolRequest) (*document.Document, *mcp.CallToolResult) {
	path, err := req.RequireString("path")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	doc, err := document.Parse(path, data)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return doc, nil
}

func (s *Server) getFieldContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FieldContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     FieldContract,
		},
	}, nil
}
