package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/triage/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"triage_message": {
		def:     messageToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMessage },
	},
	"triage_list_cases": {
		def:     listCasesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListCases },
	},
	"triage_get_case": {
		def:     getCaseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetCase },
	},
	"triage_symptoms": {
		def:     symptomsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSymptoms },
	},
	"triage_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the triage tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(h *Handlers, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"triage",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool)
	if cfg != nil {
		for _, name := range cfg.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport. It returns when stdin
// closes or the process is interrupted.
func Run(h *Handlers, cfg *config.Config, version string) error {
	s := NewServer(h, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
