package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/stuffscore/internal/adapters/repository"
	service "github.com/okian/stuffscore/internal/app"
	"github.com/okian/stuffscore/internal/domain/model"
)

// maxScoreBody caps POST /stuff_score payloads.
const maxScoreBody = 1 << 20

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	StuffScore(ctx context.Context, population string) (*repository.Snapshot, error)
	Refresh(ctx context.Context, population string) (*repository.Snapshot, error)
	ScheduleRefresh(ctx context.Context, population, reason string) (bool, error)
	Rank(ctx context.Context, population string, id model.PitcherID) (model.StuffScoreResult, error)
	Score(ctx context.Context, pitchers []service.PitcherInput) ([]model.StuffScoreResult, model.PopulationStats, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleFreeAgents handles GET /free_agents/stuff_score requests.
func (h *LeaderboardHandler) HandleFreeAgents(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, populationFreeAgents)
}

// HandleGetLeaderboard handles GET /populations/{population}/stuff_score?limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, r.PathValue("population"))
}

func (h *LeaderboardHandler) serve(w http.ResponseWriter, r *http.Request, population string) {
	const op = "api.get_leaderboard"
	limit, err := h.limit(r)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	snap, err := h.deps.StuffScore(r.Context(), population)
	if err != nil {
		writeFailure(w, wrapRequest(r.Context(), op, err))
		return
	}
	writeSnapshot(w, snap, limit)
}

// refreshAck is the body of an accepted async refresh.
type refreshAck struct {
	Status     string `json:"status"`
	Population string `json:"population"`
	Duplicate  bool   `json:"duplicate"`
}

// HandleRefresh handles POST /populations/{population}/refresh requests.
// With ?async=true the recompute is queued and 202 is returned at once.
func (h *LeaderboardHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh"
	population := r.PathValue("population")

	if s := r.URL.Query().Get("async"); s != "" {
		async, err := strconv.ParseBool(s)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		if async {
			queued, err := h.deps.ScheduleRefresh(r.Context(), population, model.RefreshRequested)
			if err != nil {
				writeFailure(w, wrapRequest(r.Context(), op, err))
				return
			}
			writeJSON(w, http.StatusAccepted, refreshAck{Status: "accepted", Population: population, Duplicate: !queued})
			return
		}
	}

	snap, err := h.deps.Refresh(r.Context(), population)
	if err != nil {
		writeFailure(w, wrapRequest(r.Context(), op, err))
		return
	}
	writeSnapshot(w, snap, 0)
}

// scoreRequest is the body of POST /stuff_score.
type scoreRequest struct {
	Pitchers []service.PitcherInput `json:"pitchers"`
}

// HandleScore handles POST /stuff_score requests.
func (h *LeaderboardHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	var req scoreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScoreBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	results, stats, err := h.deps.Score(r.Context(), req.Pitchers)
	if err != nil {
		writeFailure(w, wrapRequest(r.Context(), op, err))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Population:  "ad_hoc",
		Leaderboard: results,
		LeagueStats: stats,
	})
}

// limit parses ?limit; absent means the whole leaderboard.
func (h *LeaderboardHandler) limit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, repository.ErrInvalidLimit
	}
	if h.maxLimit > 0 && n > h.maxLimit {
		return 0, repository.ErrInvalidLimit
	}
	return n, nil
}

func writeSnapshot(w http.ResponseWriter, snap *repository.Snapshot, limit int) {
	results := snap.Results
	if limit > 0 {
		results, _ = snap.TopN(limit)
	}
	if results == nil {
		results = []model.StuffScoreResult{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Population:  snap.Population,
		GeneratedAt: snap.GeneratedAt.UTC().Format(time.RFC3339),
		Leaderboard: results,
		LeagueStats: snap.Stats,
	})
}
