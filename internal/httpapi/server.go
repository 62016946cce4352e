package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/domain"
	apimw "github.com/hamed0406/davprobe/internal/httpapi/middleware"
	"github.com/hamed0406/davprobe/internal/repo"
)

// CheckRunner runs a target's check sequence on demand.
type CheckRunner interface {
	CheckNow(ctx context.Context, id domain.TargetID) (*domain.CheckResult, error)
}

type Server struct {
	Logger  *zap.Logger
	Targets repo.TargetStore
	Results repo.ResultStore
	Checker CheckRunner
	Metrics http.Handler // nil disables /metrics
}

func NewServer(l *zap.Logger, ts repo.TargetStore, rs repo.ResultStore, c CheckRunner, metrics http.Handler) *Server {
	return &Server{Logger: l, Targets: ts, Results: rs, Checker: c, Metrics: metrics}
}

// RouterOptions configures access control for the read and admin routes.
type RouterOptions struct {
	Keys           apimw.Keys
	AllowedOrigins []string // empty allows all
	PublicRPM      int
	PublicBurst    int
	AdminRPM       int
	AdminBurst     int
}

func (s *Server) Router(o RouterOptions) http.Handler {
	r := chi.NewRouter()
	if len(o.AllowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: o.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(o.PublicRPM, o.PublicBurst))
		r.Use(apimw.RequireAny(o.Keys))
		r.Get("/api/targets", s.handleListTargets)
		r.Get("/api/results", s.handleLatest)
		r.Get("/api/targets/{id}/results", s.handleHistory)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(o.AdminRPM, o.AdminBurst))
		r.Use(apimw.RequireAdmin(o.Keys))
		r.Post("/api/targets/{id}/check", s.handleCheckNow)
	})

	return r
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Targets.List(r.Context())
	if err != nil {
		s.Logger.Warn("api_list_targets_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Results.Latest(r.Context())
	if err != nil {
		s.Logger.Warn("api_latest_error", zap.Error(err))
		http.Error(w, "results error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	if _, err := s.Targets.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	h, err := s.Results.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	cr, err := s.Checker.CheckNow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.Logger.Info("api_check_now",
		zap.String("target", string(id)),
		zap.String("status", cr.Status),
		zap.Float64("latency_ms", cr.LatencyMS),
	)
	writeJSON(w, http.StatusOK, cr)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown target"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
