package api

import (
	"net/http"
)

// PitchersHandler handles roster and per-pitcher requests.
type PitchersHandler struct {
	deps PitcherDependencies
}

// NewPitchersHandler creates a new pitchers handler.
func NewPitchersHandler(deps PitcherDependencies) *PitchersHandler {
	return &PitchersHandler{deps: deps}
}

// HandleRoster returns a handler listing the population's pitchers.
func (h *PitchersHandler) HandleRoster(population string) http.HandlerFunc {
	op := "api.roster." + population
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := h.deps.Pitchers(r.Context(), population)
		if err != nil {
			writeFailure(w, wrapRequest(r.Context(), op, err))
			return
		}
		writeJSON(w, http.StatusOK, ps)
	}
}

// HandleSummary handles GET /pitchers/{id}/summary requests.
func (h *PitchersHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	id, err := pitcherID(r)
	if err != nil {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	rows, err := h.deps.Summary(r.Context(), id)
	if err != nil {
		writeFailure(w, wrapRequest(r.Context(), op, err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleHighlights handles GET /pitchers/{id}/highlights requests.
func (h *PitchersHandler) HandleHighlights(w http.ResponseWriter, r *http.Request) {
	const op = "api.highlights"
	id, err := pitcherID(r)
	if err != nil {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	hl, err := h.deps.Highlights(r.Context(), id)
	if err != nil {
		writeFailure(w, wrapRequest(r.Context(), op, err))
		return
	}
	writeJSON(w, http.StatusOK, hl)
}
