package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/scoring"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "chat", "cases", "symptoms"
}

// ChatPageData is the template data for the chat page.
type ChatPageData struct {
	PageData
	Examples []string
}

// CasesPageData is the template data for the case history page.
type CasesPageData struct {
	PageData
	Items []cases.Summary
	Limit int
}

// DetailPageData is the template data for the case detail page.
type DetailPageData struct {
	PageData
	Case         *cases.Record
	RenderedHTML template.HTML
}

// SymptomsPageData is the template data for the knowledge base page.
type SymptomsPageData struct {
	PageData
	Symptoms []kb.Symptom
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	markdown  goldmark.Markdown
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatMillis": formatMillis,
		"percent":      percent,
		"levelClass":   levelClass,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"chat":     "chat.html",
		"cases":    "cases.html",
		"detail":   "detail.html",
		"symptoms": "symptoms.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("template execution error", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	tErr := asTriageError(err)

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		writeAPIError(w, tErr)
		return
	}

	r.renderPageStatus(w, tErr.Status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", tErr.Status), ""),
		StatusCode: tErr.Status,
		Message:    tErr.Message,
	})
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is dropped.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

func asTriageError(err error) *errors.TriageError {
	var tErr *errors.TriageError
	if !stderrors.As(err, &tErr) {
		tErr = errors.NewInternal(err)
	}
	return tErr
}

// writeAPIError writes the JSON error envelope.
func writeAPIError(w http.ResponseWriter, err error) {
	tErr := asTriageError(err)
	body := map[string]any{
		"code":    string(tErr.Code),
		"message": tErr.Message,
		"status":  tErr.Status,
	}
	if len(tErr.Details) > 0 {
		body["details"] = tErr.Details
	}
	renderJSON(w, tErr.Status, map[string]any{"error": body})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// formatMillis formats epoch milliseconds as "2006-01-02 15:04" UTC.
func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

// percent formats a confidence in [0,1] as a whole percentage.
func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// levelClass maps a triage level to a CSS class.
func levelClass(level string) string {
	switch level {
	case scoring.LevelEmergency:
		return "level-emergency"
	case scoring.LevelER:
		return "level-er"
	case scoring.LevelDoctor:
		return "level-doctor"
	case "":
		return "level-pending"
	default:
		return "level-selfcare"
	}
}
