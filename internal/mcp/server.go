package mcp

import (
	"context"
	"database/sql"
	"io"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/formulary/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"formula_save": {
		def:     formulaSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFormulaSave },
	},
	"formula_list": {
		def:     formulaListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFormulaList },
	},
	"problem_save": {
		def:     problemSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProblemSave },
	},
	"problem_list": {
		def:     problemListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProblemList },
	},
	"content_save": {
		def:     contentSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContentSave },
	},
	"content_list": {
		def:     contentListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContentList },
	},
	"model_call": {
		def:     modelCallToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleModelCall },
	},
}

// AllToolNames returns all tool names in sorted order.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewServer creates an MCP server with every Formulary tool registered.
// gen may be nil, in which case model_call reports the missing credential.
func NewServer(db *sql.DB, gen ops.Generator, rec ops.ExchangeRecorder, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"formulary",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, gen, rec)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the tools over the given streams (normally stdin/stdout) until
// in closes or ctx is cancelled.
func Run(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}
