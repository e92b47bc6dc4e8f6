// Package mockapi serves a fixture-backed marketplace admin API so the
// console runs end to end without the real backend.
package mockapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/five82/marketdesk/internal/api"
	"github.com/five82/marketdesk/internal/query"
)

// Options configures the mock server.
type Options struct {
	// Token, when set, is required as a bearer token on every request.
	Token string
	// Latency delays every list response, which makes debounce and stale
	// responses visible in the console.
	Latency time.Duration
	Logger  *slog.Logger
}

// NewHandler returns the API router mounted under /api.
func NewHandler(ds *Dataset, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &handler{ds: ds, opts: opts, logger: logger.With("component", "mockapi")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	if opts.Token != "" {
		r.Use(h.requireToken)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api/{group}/{resource}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
	return r
}

type handler struct {
	ds     *Dataset
	opts   Options
	logger *slog.Logger
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", ww.Status(),
			"request_id", r.Header.Get("X-Request-ID"),
			"took", time.Since(start),
		)
	})
}

func (h *handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.Header.Get("Authorization") == "Bearer "+h.opts.Token {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
	})
}

func resourcePath(r *http.Request) string {
	return chi.URLParam(r, "group") + "/" + chi.URLParam(r, "resource")
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q, err := query.Parse(r.URL.RawQuery)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.opts.Latency > 0 {
		select {
		case <-time.After(h.opts.Latency):
		case <-r.Context().Done():
			return
		}
	}
	resp, ok := h.ds.List(resourcePath(r), q)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown resource")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.ds.Get(resourcePath(r), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	rec, ok := h.ds.Create(resourcePath(r), body)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown resource")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	rec, ok := h.ds.Update(resourcePath(r), chi.URLParam(r, "id"), body)
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.ds.Delete(resourcePath(r), chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (api.Record, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "expected application/json")
		return nil, false
	}
	var rec api.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if rec == nil {
		rec = api.Record{}
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
