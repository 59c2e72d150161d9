// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/stuffscore/internal/adapters/repository"
	service "github.com/okian/stuffscore/internal/app"
	"github.com/okian/stuffscore/internal/domain/model"
	"github.com/okian/stuffscore/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PitcherDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	pitchersHandler    *PitchersHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		pitchersHandler:    NewPitchersHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /pitchers", MetricsMiddleware(s.pitchersHandler.HandleRoster(populationMain), "pitchers"))
	mux.HandleFunc("GET /free_agents", MetricsMiddleware(s.pitchersHandler.HandleRoster(populationFreeAgents), "free_agents"))
	mux.HandleFunc("GET /pitchers/{id}/summary", MetricsMiddleware(s.pitchersHandler.HandleSummary, "summary"))
	mux.HandleFunc("GET /pitchers/{id}/highlights", MetricsMiddleware(s.pitchersHandler.HandleHighlights, "highlights"))

	mux.HandleFunc("GET /free_agents/stuff_score", MetricsMiddleware(s.leaderboardHandler.HandleFreeAgents, "stuff_score"))
	mux.HandleFunc("GET /populations/{population}/stuff_score", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "stuff_score"))
	mux.HandleFunc("POST /populations/{population}/refresh", MetricsMiddleware(s.leaderboardHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("POST /stuff_score", MetricsMiddleware(s.leaderboardHandler.HandleScore, "score"))
	mux.HandleFunc("GET /populations/{population}/stuff_score/{id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// Population names served by the fixed roster routes.
const (
	populationMain       = "main"
	populationFreeAgents = "free_agents"
)

// leaderboardResponse is the JSON body of every stuff score read.
type leaderboardResponse struct {
	Population  string                   `json:"population"`
	GeneratedAt string                   `json:"generated_at,omitempty"`
	Leaderboard []model.StuffScoreResult `json:"leaderboard"`
	LeagueStats model.PopulationStats    `json:"league_stats"`
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

// writeFailure maps err onto a status code and error body.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrUnknownPopulation),
		errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, service.ErrNoQueue),
		errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// pitcherID parses the {id} path value.
func pitcherID(r *http.Request) (model.PitcherID, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadRequest
	}
	return model.PitcherID(id), nil
}

// PitcherDependencies defines the roster and per-pitcher reads.
type PitcherDependencies interface {
	Pitchers(ctx context.Context, population string) ([]model.Pitcher, error)
	Summary(ctx context.Context, id model.PitcherID) ([]model.PitchTypeSummary, error)
	Highlights(ctx context.Context, id model.PitcherID) (scoring.PitcherHighlights, error)
}
