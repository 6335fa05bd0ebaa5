package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	umledit "github.com/alnah/go-umledit"
)

// maxRequestBytes bounds request bodies.
const maxRequestBytes = 1 << 20

// server exposes the library over a local JSON API.
type server struct {
	store     *umledit.TemplateStore
	renderers *umledit.RendererPool
	renderErr error // set when no jar was found; only txt renders
	assistant *umledit.Assistant
	conv      *umledit.Conversation
	apiKey    func() (string, bool)
	logger    *slog.Logger
}

// routes builds the chi router.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.health)

	r.Route("/api/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Post("/reset", s.resetTemplates)
		r.Get("/{name}", s.getTemplate)
		r.Put("/{name}", s.putTemplate)
		r.Delete("/{name}", s.deleteTemplate)
	})

	r.Post("/api/render", s.render)
	r.Post("/api/assist", s.assist)
	r.Delete("/api/assist", s.resetConversation)

	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		})
	}
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) listTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

// templateName reads the {name} route parameter without surrounding blanks,
// so every template route addresses the same entry.
func templateName(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "name"))
}

func (s *server) getTemplate(w http.ResponseWriter, r *http.Request) {
	name := templateName(r)
	t, ok := s.store.Get(name)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: %q", ErrTemplateNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// putTemplate upserts; 201 for a new name, 200 for a replacement.
func (s *server) putTemplate(w http.ResponseWriter, r *http.Request) {
	name := templateName(r)

	var req struct {
		Body string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := umledit.ValidateTemplate(name, req.Body); err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusOK
	if !s.store.Has(name) {
		status = http.StatusCreated
	}
	if !s.persisted(w, s.store.AddOrReplace(name, req.Body)) {
		return
	}
	writeJSON(w, status, umledit.Template{Name: name, Body: req.Body})
}

// deleteTemplate answers 204 whether or not the name existed.
func (s *server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.persisted(w, s.store.Remove(templateName(r))) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) resetTemplates(w http.ResponseWriter, _ *http.Request) {
	if !s.persisted(w, s.store.ResetToDefaults()) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.List())
}

// render answers with the artifact bytes. The body is the markup; the
// format comes from ?format= (default png).
func (s *server) render(w http.ResponseWriter, r *http.Request) {
	format, err := umledit.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	markup, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if s.renderErr != nil && format != umledit.FormatTXT {
		s.writeError(w, s.renderErr)
		return
	}

	rd := s.renderers.Acquire()
	artifact, err := rd.Export(r.Context(), string(markup), format)
	s.renderers.Release(rd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() { _ = os.Remove(artifact) }()

	data, err := os.ReadFile(artifact) // #nosec G304 -- path produced by the renderer
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// assist continues the server's conversation with a prompt.
func (s *server) assist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, umledit.ErrBlankPrompt)
		return
	}
	key, ok := s.apiKey()
	if !ok {
		s.writeError(w, umledit.ErrNoAPIKey)
		return
	}

	markup, err := s.assistant.Complete(r.Context(), s.conv, req.Prompt, key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"markup": markup})
}

func (s *server) resetConversation(w http.ResponseWriter, _ *http.Request) {
	s.conv.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// persisted reports whether the handler should continue. A persistence
// warning is surfaced in a Warning header; the change itself is kept.
func (s *server) persisted(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, umledit.ErrPersistence) {
		s.logger.Warn("template change not saved", "error", err)
		w.Header().Set("Warning", fmt.Sprintf("199 umledit %q", err.Error()))
		return true
	}
	s.writeError(w, err)
	return false
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("malformed request")

// errorResponse is the JSON error body.
type errorResponse struct {
	Error  string `json:"error"`
	Stderr string `json:"stderr,omitempty"`
}

// statusFor maps library errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, umledit.ErrNoAPIKey):
		return http.StatusPreconditionFailed
	case errors.Is(err, umledit.ErrValidation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, umledit.ErrRenderFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, umledit.ErrAssistantFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var renderErr *umledit.RenderError
	if errors.As(err, &renderErr) {
		resp.Stderr = renderErr.Stderr
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
