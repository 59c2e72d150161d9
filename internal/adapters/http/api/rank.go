package api

import (
	"net/http"
)

// RankHandler handles single-pitcher rank requests.
type RankHandler struct {
	deps LeaderboardDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps LeaderboardDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /populations/{population}/stuff_score/{id} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	id, err := pitcherID(r)
	if err != nil {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.Rank(r.Context(), r.PathValue("population"), id)
	if err != nil {
		writeFailure(w, wrapRequest(r.Context(), op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
