package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/engine"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/report"
	"github.com/hpungsan/triage/internal/session"
	"github.com/hpungsan/triage/internal/store"
)

// MaxListLimit caps the number of cases returned by one listing.
const MaxListLimit = 500

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	engine       *engine.Engine
	repo         store.Repository
	kb           *kb.KnowledgeBase
	historyLimit int
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, repo store.Repository, knowledge *kb.KnowledgeBase, historyLimit int) *Handlers {
	return &Handlers{engine: eng, repo: repo, kb: knowledge, historyLimit: historyLimit}
}

// Request types for each tool

// MessageRequest represents the arguments for triage_message.
type MessageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text"`
}

// ListCasesRequest represents the arguments for triage_list_cases.
type ListCasesRequest struct {
	Limit int `json:"limit,omitempty"`
}

// GetCaseRequest represents the arguments for triage_get_case.
type GetCaseRequest struct {
	CaseID        string `json:"case_id"`
	IncludeReport bool   `json:"include_report,omitempty"`
}

// ExportRequest represents the arguments for triage_export.
type ExportRequest struct {
	Path  string `json:"path"`
	Limit int    `json:"limit,omitempty"`
}

// Output types

// ListCasesOutput is the result of triage_list_cases.
type ListCasesOutput struct {
	Cases []cases.Summary `json:"cases"`
	Count int             `json:"count"`
	Limit int             `json:"limit"`
}

// GetCaseOutput is the result of triage_get_case.
type GetCaseOutput struct {
	Case   *cases.Record `json:"case"`
	Report string        `json:"report,omitempty"`
}

// SymptomsOutput is the result of triage_symptoms.
type SymptomsOutput struct {
	Symptoms []kb.Symptom `json:"symptoms"`
	Count    int          `json:"count"`
}

// Handler implementations

// HandleMessage handles the triage_message tool call.
func (h *Handlers) HandleMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MessageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	sid := strings.TrimSpace(input.SessionID)
	if sid == "" {
		sid = session.NewAnonymousID()
	}

	reply, err := h.engine.Handle(ctx, sid, input.Text)
	if err != nil {
		return errorResult(err), nil
	}
	reply.SessionID = sid

	return successResult(reply)
}

// HandleListCases handles the triage_list_cases tool call.
func (h *Handlers) HandleListCases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListCasesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must not be negative")), nil
	}

	limit := input.Limit
	if limit == 0 {
		limit = h.historyLimit
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	items, err := h.repo.ListCases(ctx, limit)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(ListCasesOutput{Cases: items, Count: len(items), Limit: limit})
}

// HandleGetCase handles the triage_get_case tool call.
func (h *Handlers) HandleGetCase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetCaseRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.CaseID) == "" {
		return errorResult(errors.NewInvalidRequest("case_id is required")), nil
	}

	rec, err := h.repo.GetCase(ctx, input.CaseID)
	if err != nil {
		return errorResult(err), nil
	}

	out := GetCaseOutput{Case: rec}
	if input.IncludeReport {
		out.Report = report.Markdown(rec)
	}
	return successResult(out)
}

// HandleSymptoms handles the triage_symptoms tool call.
func (h *Handlers) HandleSymptoms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symptoms := h.kb.Symptoms()
	return successResult(SymptomsOutput{Symptoms: symptoms, Count: len(symptoms)})
}

// HandleExport handles the triage_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := store.ExportFile(ctx, h.repo, input.Path, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var tErr *errors.TriageError
	if stderrors.As(err, &tErr) {
		errorObj := map[string]any{
			"code":    tErr.Code,
			"message": tErr.Message,
			"status":  tErr.Status,
		}
		// Storage and internal details can carry paths or SQL errors
		if tErr.Code != errors.ErrInternal && tErr.Code != errors.ErrStorage && tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
