// Package server exposes the proxy engine over a small JSON HTTP API.
//
// Endpoints:
//
//	POST /api/v1/translate                     body: {"context","text","use_proxies"}
//	GET  /api/v1/contexts/{context}/lookup?text=<source>
//	GET  /healthz
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/minios-linux/nameproxy/dict"
	"github.com/minios-linux/nameproxy/logging"
	"github.com/minios-linux/nameproxy/proxy"
)

// ---- JSON types ---------------------------------------------------------

type translateRequest struct {
	Context    string `json:"context"`
	Text       string `json:"text"`
	UseProxies *bool  `json:"use_proxies,omitempty"`
}

type translateResponse struct {
	*proxy.Result
	Degraded  bool   `json:"degraded"`
	RequestID string `json:"request_id"`
}

type lookupResponse struct {
	Context string       `json:"context"`
	Text    string       `json:"text"`
	Entries []dict.Entry `json:"entries"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ---- server -------------------------------------------------------------

// Server serves the API for one engine.
type Server struct {
	cfg    Config
	engine *proxy.Engine
	source dict.Source
	log    *zap.Logger
}

// New returns a server. source backs the lookup endpoint and should be the
// one the engine was built with.
func New(cfg Config, engine *proxy.Engine, source dict.Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Server{cfg: cfg, engine: engine, source: source, log: logger}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/translate", s.handleTranslate)
		r.Get("/contexts/{context}/lookup", s.handleLookup)
	})

	if len(s.cfg.CORSOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         600,
	})
	return c.Handler(r)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// ---- handlers -----------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	req.Context = strings.TrimSpace(req.Context)
	if req.Text == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "text is required")
		return
	}
	useProxies := req.UseProxies == nil || *req.UseProxies
	if useProxies && req.Context == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "context is required")
		return
	}

	res, err := s.engine.Translate(r.Context(), req.Context, req.Text, useProxies)
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			logging.FromContext(r.Context()).Error("translate failed", zap.Error(err))
		}
		writeError(w, r, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{
		Result:    res,
		Degraded:  res.Degraded(),
		RequestID: RequestID(r.Context()),
	})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "context")
	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "text query parameter is required")
		return
	}
	if s.source == nil {
		writeError(w, r, http.StatusNotFound, "unknown_context", "no dictionary configured")
		return
	}
	idx, err := s.source.Index(r.Context(), contextID)
	if err != nil {
		status, code := classify(err)
		writeError(w, r, status, code, err.Error())
		return
	}
	entries := idx.Lookup(text)
	if entries == nil {
		entries = []dict.Entry{}
	}
	writeJSON(w, http.StatusOK, lookupResponse{Context: contextID, Text: text, Entries: entries})
}

// classify maps engine errors to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, proxy.ErrNoTranslatorConfigured):
		return http.StatusServiceUnavailable, "no_translator"
	case errors.Is(err, proxy.ErrProxyPoolExhausted):
		return http.StatusUnprocessableEntity, "pool_exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, proxy.ErrTranslatorFailure):
		return http.StatusBadGateway, "translator_failure"
	case errors.Is(err, dict.ErrUnknownContext):
		return http.StatusNotFound, "unknown_context"
	}
	return http.StatusInternalServerError, "internal"
}

// ---- helpers ------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code, RequestID: RequestID(r.Context())})
}
