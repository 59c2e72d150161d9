package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/stuffscore/internal/domain/model"
)

// Render writes the report as an aligned table, or as indented JSON.
func Render(w io.Writer, rep *Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	if _, err := fmt.Fprintf(w, "Stuff Score: %s", rep.Population); err != nil {
		return err
	}
	if rep.GeneratedAt != "" {
		if _, err := fmt.Fprintf(w, " (generated %s)", rep.GeneratedAt); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "RANK\tPITCHER\tSTUFF\tRAW\tVELO\tSPIN\tIVB\tHB\tEV\tLA\t")
	for _, e := range rep.Leaderboard {
		p := e.Profile
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%+.3f\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			e.Rank, e.Name, e.DisplayScore, e.RawScore,
			cell(p.Speed, 1), cell(p.SpinRate, 0), cell(p.VerticalBreakAbs, 1),
			cell(p.HorizontalBreakAbs, 1), cell(p.ExitVelocity, 1), cell(p.LaunchAngle, 1))
	}
	return tw.Flush()
}

// cell formats an optional metric, "-" when missing.
func cell(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}

// names lists pitcher names in rank order.
func names(entries []model.StuffScoreResult) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
