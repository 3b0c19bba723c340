package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/umzugtech/volumescan/internal/bridge"
	"github.com/umzugtech/volumescan/internal/service"
	"github.com/umzugtech/volumescan/internal/session"
)

type Server struct {
	service   *service.ScanService
	bridge    *bridge.Bridge
	transport *ARTransport // nil when the process is not AR-hosted
	mux       *http.ServeMux
	logger    *slog.Logger
}

// NewServer builds the JSON API. transport may be nil when no AR host is
// attached; the AR ingress routes then answer 404.
func NewServer(svc *service.ScanService, br *bridge.Bridge, transport *ARTransport, logger *slog.Logger) *Server {
	s := &Server{
		service:   svc,
		bridge:    br,
		transport: transport,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /sessions", s.handleStartSession)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("GET /sessions/{id}/items", s.handleListItems)
	s.mux.HandleFunc("POST /sessions/{id}/items", s.handleAddManualItem)
	s.mux.HandleFunc("PATCH /sessions/{id}/items/{itemID}", s.handleEditItem)
	s.mux.HandleFunc("DELETE /sessions/{id}/items/{itemID}", s.handleRemoveItem)
	s.mux.HandleFunc("POST /sessions/{id}/photos", s.handleScanPhoto)
	s.mux.HandleFunc("GET /sessions/{id}/totals", s.handleTotals)
	s.mux.HandleFunc("GET /sessions/{id}/special", s.handleSpecialHandling)
	s.mux.HandleFunc("POST /sessions/{id}/finalize", s.handleFinalize)
	s.mux.HandleFunc("GET /sessions/{id}/quote", s.handleSessionQuote)
	s.mux.HandleFunc("GET /customers/{id}/quote", s.handleCustomerQuote)

	s.mux.HandleFunc("GET /ar/capabilities", s.handleARCapabilities)
	s.mux.HandleFunc("POST /sessions/{id}/ar/start", s.handleARStart)
	s.mux.HandleFunc("POST /sessions/{id}/ar/measurements", s.handleARMeasurement)
	s.mux.HandleFunc("POST /sessions/{id}/ar/detections", s.handleARDetection)
	s.mux.HandleFunc("POST /ar/messages", s.handleARIngress)
	s.mux.HandleFunc("GET /ar/messages", s.handleAROutbox)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, session.ErrItemNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidDimensions):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionFinalized), errors.Is(err, session.ErrAlreadyFinalizing):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, bridge.ErrARUnavailable), errors.Is(err, bridge.ErrBridgeTimeout):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "internal error")
		s.logger.Error("request failed", "error", err)
	}
}
