// Package api exposes scanning and mining over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/rulescan/internal/mine"
	"github.com/ppiankov/rulescan/internal/model"
	"github.com/ppiankov/rulescan/internal/pipeline"
	"github.com/ppiankov/rulescan/internal/scan"
	"github.com/ppiankov/rulescan/internal/util"
)

// Server routes API requests to the scanner and pipeline
type Server struct {
	router   *chi.Mux
	pipeline *pipeline.Pipeline
	config   *model.Config
	logger   *util.Logger
}

// NewServer creates a server. Request logging is enabled when verbose.
func NewServer(p *pipeline.Pipeline, cfg *model.Config, logger *util.Logger) *Server {
	if logger == nil {
		logger = util.Discard()
	}
	s := &Server{
		router:   chi.NewRouter(),
		pipeline: p,
		config:   cfg,
		logger:   logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	if s.config.Output.Verbose {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Post("/mine", s.handleMine)
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx ends, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// ScanRequest is the body of POST /v1/scan. Threshold fields left out of the
// body keep the server's configured values.
type ScanRequest struct {
	Records    []model.RuleRecord     `json:"records"`
	Thresholds *model.ThresholdConfig `json:"thresholds,omitempty"`
}

// MineRequest is the body of POST /v1/mine. Omitted params and thresholds
// fields keep the configured values.
type MineRequest struct {
	Name         string                 `json:"name,omitempty"`
	Transactions [][]string             `json:"transactions"`
	Params       *model.MiningConfig    `json:"params,omitempty"`
	Thresholds   *model.ThresholdConfig `json:"thresholds,omitempty"`
}

// ErrorResponse is returned for every non-2xx status
type ErrorResponse struct {
	Error      string            `json:"error"`
	Violations []model.Violation `json:"violations,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	// Fields the body leaves out keep the configured values
	th := s.config.Thresholds
	req := ScanRequest{Thresholds: &th}
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Thresholds != nil {
		th = *req.Thresholds
	}
	if err := th.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := scan.Scan(req.Records, th)
	if err != nil {
		s.writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	params := s.config.Mining
	th := s.config.Thresholds
	req := MineRequest{Params: &params, Thresholds: &th}
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	name := req.Name
	if name == "" {
		name = "request"
	}
	ts := model.NewTransactionSet(name, req.Transactions)
	if ts.Len() == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "transactions must contain at least one non-empty basket"})
		return
	}

	if req.Params != nil {
		params = *req.Params
	}
	if req.Thresholds != nil {
		th = *req.Thresholds
	}
	if err := th.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	report, err := s.pipeline.RunWith(r.Context(), ts, params, th)
	if err != nil {
		if errors.Is(err, mine.ErrInvalidParams) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		s.writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	var verr *scan.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Violations: verr.Violations})
		return
	}
	s.logger.Error("request failed: %v", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	limit := s.config.Server.MaxBodyBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
