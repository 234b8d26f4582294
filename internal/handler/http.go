package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matusita0314/eging-map-app/internal/auth"
	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/service"
	"github.com/matusita0314/eging-map-app/internal/websocket"
)

// TournamentAPI is the service surface exposed over HTTP
type TournamentAPI interface {
	Standings(ctx context.Context, tournamentID string, limit int) ([]domain.RankingEntry, error)
	UserStanding(ctx context.Context, tournamentID, userID string) (*domain.ParticipationEntry, error)
	RecalculateRankings(ctx context.Context, caller *domain.Caller, tournamentID string) (*service.RecalculateResult, error)
	AwardPrizes(ctx context.Context, caller *domain.Caller, req service.AwardRequest) (*service.AwardResult, error)
}

// ReadinessCheck reports whether a dependency can serve requests
type ReadinessCheck func(ctx context.Context) error

// Handler provides HTTP handlers for the tournament API
type Handler struct {
	api      TournamentAPI
	hub      *websocket.Hub
	verifier *auth.Verifier
	gatherer prometheus.Gatherer
	checks   map[string]ReadinessCheck
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler. hub and gatherer may be nil.
func NewHandler(api TournamentAPI, hub *websocket.Hub, verifier *auth.Verifier, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	return &Handler{
		api:      api,
		hub:      hub,
		verifier: verifier,
		gatherer: gatherer,
		checks:   make(map[string]ReadinessCheck),
		logger:   logger,
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// APIError is the machine-readable error body
type APIError struct {
	Code    domain.ErrorKind `json:"code"`
	Message string           `json:"message"`
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(corsMiddleware)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	if h.hub != nil {
		r.Get("/ws", h.HandleWebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tournaments/{tournamentID}", func(r chi.Router) {
			r.Get("/standings", h.GetStandings)
			r.Get("/standings/{userID}", h.GetUserStanding)
		})

		r.Route("/admin/tournaments/{tournamentID}", func(r chi.Router) {
			r.Use(h.verifier.Middleware)
			r.Post("/recalculate", h.RecalculateRankings)
			r.Post("/prizes", h.AwardPrizes)
		})
	})

	return r
}

// requestLogger logs each request through the service logger
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// writeError maps err onto its kind and status. Internal errors are logged
// and their detail is not returned.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		msg = domain.ErrInternalError.Error()
	}

	h.writeJSON(w, statusFor(kind), APIResponse{
		Success: false,
		Error:   &APIError{Code: kind, Message: msg},
	})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck probes every registered dependency
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    failed,
			Error:   &APIError{Code: domain.KindInternal, Message: "dependencies unavailable"},
		})
		return
	}

	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetStandings returns the top of a tournament's ranking
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 0 {
			h.writeError(w, r, invalid("limit must be a non-negative integer"))
			return
		}
		limit = l
	}

	entries, err := h.api.Standings(r.Context(), tournamentID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, entries)
}

// GetUserStanding returns one user's standing in a tournament
func (h *Handler) GetUserStanding(w http.ResponseWriter, r *http.Request) {
	entry, err := h.api.UserStanding(r.Context(), chi.URLParam(r, "tournamentID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, entry)
}

// RecalculateRankings is the admin recompute callable
func (h *Handler) RecalculateRankings(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.RecalculateRankings(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "tournamentID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, res)
}

type awardPrizesRequest struct {
	Winners map[int]string `json:"winners"`
}

// AwardPrizes is the admin award callable
func (h *Handler) AwardPrizes(w http.ResponseWriter, r *http.Request) {
	var body awardPrizesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, invalid("malformed request body"))
		return
	}

	res, err := h.api.AwardPrizes(r.Context(), auth.CallerFromContext(r.Context()), service.AwardRequest{
		TournamentID: chi.URLParam(r, "tournamentID"),
		Winners:      body.Winners,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, res)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, msg)
}
