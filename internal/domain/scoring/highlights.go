package scoring

import "github.com/okian/stuffscore/internal/domain/model"

// PitcherHighlights lists a pitcher's standout pitch types. Nil fields
// mean no row qualified.
type PitcherHighlights struct {
	MostUsed       *model.PitchTypeSummary `json:"most_used"`
	Hardest        *model.PitchTypeSummary `json:"hardest"`
	SoftestContact *model.PitchTypeSummary `json:"soft_contact"`
}

// Highlights picks the most used, hardest and softest-contact pitch types.
func Highlights(rows []model.PitchTypeSummary) PitcherHighlights {
	var h PitcherHighlights
	if r, ok := MostUsed(rows); ok {
		h.MostUsed = &r
	}
	if r, ok := Hardest(rows); ok {
		h.Hardest = &r
	}
	if r, ok := SoftestContact(rows); ok {
		h.SoftestContact = &r
	}
	return h
}

// MostUsed returns the row with the highest usage percentage.
func MostUsed(rows []model.PitchTypeSummary) (model.PitchTypeSummary, bool) {
	return extreme(rows, func(r model.PitchTypeSummary) *float64 { return r.UsagePct }, greater)
}

// Hardest returns the row with the highest average speed.
func Hardest(rows []model.PitchTypeSummary) (model.PitchTypeSummary, bool) {
	return extreme(rows, func(r model.PitchTypeSummary) *float64 { return r.AvgSpeed }, greater)
}

// SoftestContact returns the row with the lowest average exit speed.
func SoftestContact(rows []model.PitchTypeSummary) (model.PitchTypeSummary, bool) {
	return extreme(rows, func(r model.PitchTypeSummary) *float64 { return r.AvgHitExitSpeed }, less)
}

func greater(a, b float64) bool { return a > b }
func less(a, b float64) bool    { return a < b }

// extreme folds the rows whose key is non-nil, keeping the first row on
// ties. It reports false when no row has the key.
func extreme(rows []model.PitchTypeSummary, key func(model.PitchTypeSummary) *float64, better func(a, b float64) bool) (model.PitchTypeSummary, bool) {
	var (
		best  model.PitchTypeSummary
		found bool
	)
	for _, r := range rows {
		k := key(r)
		if k == nil {
			continue
		}
		if !found || better(*k, *key(best)) {
			best = r
			found = true
		}
	}
	return best, found
}
