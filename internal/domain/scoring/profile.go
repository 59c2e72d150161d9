package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/stuffscore/internal/domain/model"
)

// BuildProfile reduces a pitcher's pitch-type rows into usage-weighted
// scalars. Each metric is computed over the rows that carry both the
// metric and a usage percentage; a metric with no such rows stays nil.
// Row order does not matter.
func BuildProfile(rows []model.PitchTypeSummary) model.PitcherProfile {
	var p model.PitcherProfile
	for _, m := range model.Metrics() {
		if v, ok := weightedMean(rows, m); ok {
			p = p.With(m, v)
		}
	}
	return p
}

// weightedMean computes sum(v*u)/sum(u) over eligible rows. Movement
// metrics contribute |v| per row so opposite breaks do not cancel.
func weightedMean(rows []model.PitchTypeSummary, m model.Metric) (float64, bool) {
	var num, den float64
	for _, r := range rows {
		v := r.Raw(m)
		if v == nil || r.UsagePct == nil {
			continue
		}
		x := *v
		if m.Magnitude() {
			x = math.Abs(x)
		}
		num += x * *r.UsagePct
		den += *r.UsagePct
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// BuildProfiles runs BuildProfile for every pitcher with at most workers
// goroutines. The only failure is ctx cancellation.
func BuildProfiles(ctx context.Context, repertoires map[model.PitcherID][]model.PitchTypeSummary, workers int) (map[model.PitcherID]model.PitcherProfile, error) {
	if workers < 1 {
		workers = defaultWorkers
	}

	var mu sync.Mutex
	out := make(map[model.PitcherID]model.PitcherProfile, len(repertoires))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for id, rows := range repertoires {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := BuildProfile(rows)
			mu.Lock()
			out[id] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build profiles: %w", err)
	}
	return out, nil
}
