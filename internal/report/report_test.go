package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/stuffscore/internal/adapters/http/api"
	"github.com/okian/stuffscore/internal/adapters/repository"
	service "github.com/okian/stuffscore/internal/app"
	"github.com/okian/stuffscore/internal/domain/model"
	"github.com/okian/stuffscore/pkg/logger"
)

func entry(rank int, id model.PitcherID, raw float64) model.StuffScoreResult {
	return model.StuffScoreResult{Rank: rank, PitcherID: id, RawScore: raw, Name: "P"}
}

// seedDB writes three fastball pitchers throwing 99, 95 and 91 mph.
func seedDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pitches.db")
	src, err := repository.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = src.Close() }()

	ff := "FF"
	pitchers := []struct {
		id    model.PitcherID
		first string
		speed float64
	}{
		{1, "Fast", 99},
		{2, "Medium", 95},
		{3, "Slow", 91},
	}
	var pitches []model.Pitch
	for _, p := range pitchers {
		if err := src.InsertPlayer(ctx, p.id, p.first, "Arm"); err != nil {
			t.Fatalf("insert player: %v", err)
		}
		pitches = append(pitches, model.Pitch{PitcherID: p.id, PitchType: &ff, ReleaseSpeed: model.Float(p.speed)})
	}
	if err := src.InsertPitches(ctx, pitches); err != nil {
		t.Fatalf("insert pitches: %v", err)
	}
	return path
}

// newTestService serves a started service over the real API routes.
func newTestService(t *testing.T, dbPath string) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	src, err := repository.OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	svc := service.New(
		service.WithSource(src),
		service.WithPopulations(map[string][]string{"main": {"Fast Arm", "Medium Arm", "Slow Arm"}}),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 0).Register(ctx, mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		ts.Close()
		svc.Stop()
		_ = src.Close()
	})
	return ts
}

func TestVerifyLeaderboard(t *testing.T) {
	convey.Convey("Given leaderboards to verify", t, func() {
		convey.Convey("A well ordered leaderboard with a tie should pass", func() {
			entries := []model.StuffScoreResult{entry(1, 4, 1.2), entry(2, 2, 0.5), entry(3, 7, 0.5), entry(4, 1, -1)}
			convey.So(verifyLeaderboard(entries), convey.ShouldBeNil)
		})

		convey.Convey("An empty leaderboard should pass", func() {
			convey.So(verifyLeaderboard(nil), convey.ShouldBeNil)
		})

		convey.Convey("A rank gap should fail", func() {
			entries := []model.StuffScoreResult{entry(1, 1, 1), entry(3, 2, 0)}
			convey.So(errors.Is(verifyLeaderboard(entries), ErrInconsistent), convey.ShouldBeTrue)
		})

		convey.Convey("A rising score should fail", func() {
			entries := []model.StuffScoreResult{entry(1, 1, 0), entry(2, 2, 1)}
			convey.So(errors.Is(verifyLeaderboard(entries), ErrInconsistent), convey.ShouldBeTrue)
		})

		convey.Convey("A tie ordered by descending id should fail", func() {
			entries := []model.StuffScoreResult{entry(1, 9, 0.5), entry(2, 3, 0.5)}
			convey.So(errors.Is(verifyLeaderboard(entries), ErrInconsistent), convey.ShouldBeTrue)
		})
	})
}

func TestScoreSummary(t *testing.T) {
	convey.Convey("Given raw scores of 1, 0 and -1", t, func() {
		avg, hi, lo := scoreSummary([]model.StuffScoreResult{entry(1, 1, 1), entry(2, 2, 0), entry(3, 3, -1)})
		convey.So(avg, convey.ShouldAlmostEqual, 0)
		convey.So(hi, convey.ShouldEqual, 1)
		convey.So(lo, convey.ShouldEqual, -1)
	})
}

func TestRender(t *testing.T) {
	convey.Convey("Given a report", t, func() {
		rep := &Report{
			Population:  "main",
			GeneratedAt: "2025-10-01T12:00:00Z",
			Leaderboard: []model.StuffScoreResult{{
				Rank:         1,
				PitcherID:    7,
				Name:         "Tarik Skubal",
				RawScore:     0.8,
				DisplayScore: 58,
				Profile:      model.PitcherProfile{Speed: model.Float(97.3)},
			}},
		}

		convey.Convey("When rendering a table", func() {
			var buf bytes.Buffer
			convey.So(Render(&buf, rep, false), convey.ShouldBeNil)
			out := buf.String()

			convey.Convey("Then it should include the header and the row", func() {
				convey.So(out, convey.ShouldStartWith, "Stuff Score: main (generated 2025-10-01T12:00:00Z)\n")
				convey.So(out, convey.ShouldContainSubstring, "RANK")
				convey.So(out, convey.ShouldContainSubstring, "Tarik Skubal")
				convey.So(out, convey.ShouldContainSubstring, "58.0")
				convey.So(out, convey.ShouldContainSubstring, "+0.800")
				convey.So(out, convey.ShouldContainSubstring, "97.3")
				convey.So(out, convey.ShouldContainSubstring, "-")
			})
		})

		convey.Convey("When rendering JSON", func() {
			var buf bytes.Buffer
			convey.So(Render(&buf, rep, true), convey.ShouldBeNil)

			convey.Convey("Then it should decode back to the same leaderboard", func() {
				var got Report
				convey.So(json.Unmarshal(buf.Bytes(), &got), convey.ShouldBeNil)
				convey.So(got.Population, convey.ShouldEqual, "main")
				convey.So(got.Leaderboard[0].Name, convey.ShouldEqual, "Tarik Skubal")
			})
		})
	})
}

func TestRunAgainstService(t *testing.T) {
	convey.Convey("Given a running service", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		ts := newTestService(t, seedDB(t))
		cfg := &Config{
			BaseURL:    ts.URL,
			Population: "main",
			Workers:    2,
			Timeout:    5 * time.Second,
		}

		convey.Convey("When running the report", func() {
			var buf bytes.Buffer
			err := Run(context.Background(), cfg, &buf)

			convey.Convey("Then the fastest pitcher should lead the table", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				convey.So(len(lines), convey.ShouldEqual, 5)
				convey.So(lines[2], convey.ShouldContainSubstring, "Fast Arm")
				convey.So(lines[4], convey.ShouldContainSubstring, "Slow Arm")
			})
		})

		convey.Convey("When limiting to the top entry as JSON", func() {
			cfg.TopN = 1
			cfg.JSON = true
			var buf bytes.Buffer
			err := Run(context.Background(), cfg, &buf)

			convey.Convey("Then only the leader should be returned", func() {
				convey.So(err, convey.ShouldBeNil)
				var rep Report
				convey.So(json.Unmarshal(buf.Bytes(), &rep), convey.ShouldBeNil)
				convey.So(len(rep.Leaderboard), convey.ShouldEqual, 1)
				convey.So(rep.Leaderboard[0].PitcherID, convey.ShouldEqual, model.PitcherID(1))
			})
		})

		convey.Convey("When requesting an unknown population", func() {
			cfg.Population = "bullpen"
			err := Run(context.Background(), cfg, &bytes.Buffer{})

			convey.Convey("Then it should fail with a service error", func() {
				convey.So(errors.Is(err, ErrService), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRunAgainstInconsistentService(t *testing.T) {
	convey.Convey("Given a service returning an unsorted leaderboard", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})
		mux.HandleFunc("GET /populations/main/stuff_score", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(Report{
				Population:  "main",
				Leaderboard: []model.StuffScoreResult{entry(1, 1, -1), entry(2, 2, 1)},
			})
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()

		err := Run(context.Background(), &Config{BaseURL: ts.URL, Population: "main", Workers: 1, Timeout: time.Second}, &bytes.Buffer{})

		convey.So(errors.Is(err, ErrInconsistent), convey.ShouldBeTrue)
	})
}

func TestRunLocal(t *testing.T) {
	convey.Convey("Given a local database and roster from the environment", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		t.Setenv("STUFF_CONFIG", "")
		t.Setenv("STUFF_MAIN_PITCHERS", "Fast Arm,Medium Arm,Slow Arm")
		cfg := &Config{
			Population: "main",
			DBPath:     seedDB(t),
			Workers:    2,
			JSON:       true,
		}

		convey.Convey("When running the report locally", func() {
			var buf bytes.Buffer
			err := Run(context.Background(), cfg, &buf)

			convey.Convey("Then the leaderboard should be computed without a service", func() {
				convey.So(err, convey.ShouldBeNil)
				var rep Report
				convey.So(json.Unmarshal(buf.Bytes(), &rep), convey.ShouldBeNil)
				convey.So(len(rep.Leaderboard), convey.ShouldEqual, 3)
				convey.So(rep.Leaderboard[0].Name, convey.ShouldEqual, "Fast Arm")
				convey.So(rep.Leaderboard[1].RawScore, convey.ShouldAlmostEqual, 0)
			})
		})

		convey.Convey("When the population is unknown", func() {
			cfg.Population = "bullpen"
			err := Run(context.Background(), cfg, &bytes.Buffer{})

			convey.Convey("Then it should fail", func() {
				convey.So(errors.Is(err, service.ErrUnknownPopulation), convey.ShouldBeTrue)
			})
		})
	})
}

func TestShowHelp(t *testing.T) {
	convey.Convey("Help should list the flags", t, func() {
		var buf bytes.Buffer
		ShowHelp(&buf)
		convey.So(buf.String(), convey.ShouldContainSubstring, "-population")
		convey.So(buf.String(), convey.ShouldContainSubstring, "-db")
	})
}
