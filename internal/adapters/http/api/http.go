// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/hotboard/internal/domain/dedupe"
	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/ranking"
	"github.com/okian/hotboard/internal/domain/types"
	"github.com/okian/hotboard/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an event for async recording. Returns false on backpressure.
	Enqueue(ctx context.Context, e model.Event) bool

	Recompute(ctx context.Context, g model.Granularity, now time.Time) (types.RecomputeReport, error)

	// Read operations expose leaderboard pages.
	TopN(ctx context.Context, g model.Granularity, page, pageSize int) (types.Page, error)
	MaxPageSize() int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	recomputeHandler   *RecomputeHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(metrics.GetRegistry()),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		recomputeHandler:   NewRecomputeHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", instrument("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("/stats", instrument("stats", s.statsHandler.HandleStats))
	mux.HandleFunc("/events", instrument("events", s.eventsHandler.HandlePostEvent))
	mux.HandleFunc("/recompute/{granularity}", instrument("recompute", s.recomputeHandler.HandleRecompute))
	mux.HandleFunc("/leaderboard/{granularity}", instrument("leaderboard", s.leaderboardHandler.HandleGetLeaderboard))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps errors coming out of the service to a status code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ranking.ErrInvalidPage),
		errors.Is(err, ranking.ErrEmptyEntityID),
		errors.Is(err, model.ErrUnknownGranularity):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "canceled", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// granularity reads the {granularity} path segment.
func granularity(r *http.Request) (model.Granularity, error) {
	g, err := model.ParseGranularity(r.PathValue("granularity"))
	if err != nil {
		return 0, WrapKind("api.granularity", ErrNotFound, err)
	}
	return g, nil
}
