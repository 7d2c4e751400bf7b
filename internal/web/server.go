package web

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/engine"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Deps are the services the HTTP layer serves.
type Deps struct {
	Engine  *engine.Engine
	Repo    store.Repository
	KB      *kb.KnowledgeBase
	Config  *config.Config
	Version string
}

// NewHandler builds the router for the chat API and web UI.
func NewHandler(d Deps) http.Handler {
	// Strip "templates/" and "static/" prefixes
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	historyLimit := 0
	if d.Config != nil {
		historyLimit = d.Config.HistoryLimit
	}
	h := &Handlers{
		engine:       d.Engine,
		repo:         d.Repo,
		kb:           d.KB,
		renderer:     NewRenderer(templateSub, d.Version),
		historyLimit: historyLimit,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", h.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/message", h.HandleMessage)
		r.Get("/cases", h.HandleListCases)
		r.Get("/cases/{id}", h.HandleGetCase)
		r.Get("/symptoms", h.HandleSymptoms)
		r.Get("/ws", h.HandleWebSocket)
	})

	r.Get("/", h.HandleChatPage)
	r.Get("/cases", h.HandleCasesPage)
	r.Get("/cases/{id}", h.HandleCasePage)
	r.Get("/symptoms", h.HandleSymptomsPage)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return r
}

// NewServer creates the HTTP server listening on bind:port.
func NewServer(d Deps, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(bind, fmt.Sprint(port)),
		Handler:           NewHandler(d),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Run serves srv until ctx ends or SIGINT/SIGTERM arrives, shuts down
// gracefully, then calls onShutdown (which may be nil).
func Run(ctx context.Context, srv *http.Server, onShutdown func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("triage server running", "url", "http://"+srv.Addr)
	if host, _, err := net.SplitHostPort(srv.Addr); err == nil && (host == "" || host == "0.0.0.0" || host == "::") {
		slog.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	var serveErr error
	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = err
		}
	}

	if onShutdown != nil {
		hookCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := onShutdown(hookCtx); err != nil {
			slog.Error("shutdown hook failed", "error", err)
			if serveErr == nil {
				serveErr = err
			}
		}
	}
	return serveErr
}
