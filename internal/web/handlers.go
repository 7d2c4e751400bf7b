package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/triage/internal/engine"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/report"
	"github.com/hpungsan/triage/internal/session"
	"github.com/hpungsan/triage/internal/store"
)

const (
	// MaxMessageBytes caps a chat request body.
	MaxMessageBytes = 8 << 10

	// MaxListLimit caps the number of cases returned by one listing.
	MaxListLimit = 500
)

// exampleMessages are offered as starters on the chat page.
var exampleMessages = []string{
	"fever and cough since yesterday",
	"chest tightness for 90 minutes, moderate",
	"runny nose for 30 minutes, mild",
}

// Handlers contains HTTP route handlers for the API and web UI.
type Handlers struct {
	engine       *engine.Engine
	repo         store.Repository
	kb           *kb.KnowledgeBase
	renderer     *Renderer
	historyLimit int
}

// MessageRequest is the body of POST /api/message and of websocket frames.
type MessageRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// HandleMessage handles POST /api/message: one chat turn.
func (h *Handlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxMessageBytes)
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, errors.NewInvalidRequest("body must be JSON: {\"sessionId\": string, \"text\": string}"))
		return
	}

	reply, err := h.chat(r, req)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, reply)
}

func (h *Handlers) chat(r *http.Request, req MessageRequest) (*engine.Reply, error) {
	sid := strings.TrimSpace(req.SessionID)
	if sid == "" {
		sid = session.NewAnonymousID()
	}
	reply, err := h.engine.Handle(r.Context(), sid, req.Text)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	reply.SessionID = sid
	return reply, nil
}

// HandleListCases handles GET /api/cases: case summaries, newest first.
func (h *Handlers) HandleListCases(w http.ResponseWriter, r *http.Request) {
	limit := h.listLimit(r)
	items, err := h.repo.ListCases(r.Context(), limit)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"cases": items,
		"count": len(items),
		"limit": limit,
	})
}

// HandleGetCase handles GET /api/cases/{id}: one full case record.
func (h *Handlers) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.GetCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, rec)
}

// HandleSymptoms handles GET /api/symptoms: the knowledge base listing.
func (h *Handlers) HandleSymptoms(w http.ResponseWriter, r *http.Request) {
	symptoms := h.kb.Symptoms()
	renderJSON(w, http.StatusOK, map[string]any{
		"symptoms": symptoms,
		"count":    len(symptoms),
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"boot_id":  h.engine.BootID(),
		"symptoms": h.kb.Len(),
	})
}

// HandleChatPage handles GET /: the chat UI.
func (h *Handlers) HandleChatPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "chat", ChatPageData{
		PageData: h.renderer.page("Symptom triage", "chat"),
		Examples: exampleMessages,
	})
}

// HandleCasesPage handles GET /cases: case history.
func (h *Handlers) HandleCasesPage(w http.ResponseWriter, r *http.Request) {
	limit := h.listLimit(r)
	items, err := h.repo.ListCases(r.Context(), limit)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "cases", CasesPageData{
		PageData: h.renderer.page("Cases", "cases"),
		Items:    items,
		Limit:    limit,
	})
}

// HandleCasePage handles GET /cases/{id}: the case report.
func (h *Handlers) HandleCasePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("case ID is required"))
		return
	}

	rec, err := h.repo.GetCase(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData:     h.renderer.page("Case "+rec.CaseID, "cases"),
		Case:         rec,
		RenderedHTML: h.renderer.renderMarkdown(report.Markdown(rec)),
	})
}

// HandleSymptomsPage handles GET /symptoms: the knowledge base as a table.
func (h *Handlers) HandleSymptomsPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "symptoms", SymptomsPageData{
		PageData: h.renderer.page("Symptoms", "symptoms"),
		Symptoms: h.kb.Symptoms(),
	})
}

func (h *Handlers) listLimit(r *http.Request) int {
	limit := parseIntParam(r, "limit", h.historyLimit)
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
