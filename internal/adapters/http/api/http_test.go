package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stuffscore/internal/adapters/http/api"
	"github.com/okian/stuffscore/internal/adapters/repository"
	service "github.com/okian/stuffscore/internal/app"
	"github.com/okian/stuffscore/internal/domain/model"
	"github.com/okian/stuffscore/internal/domain/scoring"
	"github.com/okian/stuffscore/pkg/logger"
)

// mockDependencies serves a fixed three-pitcher free agent leaderboard.
type mockDependencies struct {
	snap       *repository.Snapshot
	err        error
	refreshed  []string
	scheduled  []string
	queueErr   error
	scored     []service.PitcherInput
	lastCtxErr error
	block      bool
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		snap: &repository.Snapshot{
			Population: "free_agents",
			Results: []model.StuffScoreResult{
				{Rank: 1, PitcherID: 11, Name: "Dylan Cease", RawScore: 1.1, DisplayScore: 61},
				{Rank: 2, PitcherID: 12, Name: "Framber Valdez", RawScore: 0.2, DisplayScore: 52},
				{Rank: 3, PitcherID: 13, Name: "Nick Martinez", RawScore: -1.3, DisplayScore: 37},
			},
			Stats:       model.PopulationStats{"speed": {Mean: 94, StdDev: 1.2, Count: 3}},
			GeneratedAt: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func (m *mockDependencies) population(p string) error {
	if m.err != nil {
		return m.err
	}
	if p != "main" && p != "free_agents" {
		return fmt.Errorf("%w: %q", service.ErrUnknownPopulation, p)
	}
	return nil
}

func (m *mockDependencies) Pitchers(_ context.Context, population string) ([]model.Pitcher, error) {
	if err := m.population(population); err != nil {
		return nil, err
	}
	if population == "main" {
		return []model.Pitcher{{ID: 1, Name: "Logan Webb"}}, nil
	}
	return []model.Pitcher{{ID: 11, Name: "Dylan Cease"}, {ID: 12, Name: "Framber Valdez"}}, nil
}

func (m *mockDependencies) Summary(_ context.Context, id model.PitcherID) ([]model.PitchTypeSummary, error) {
	if id != 11 {
		return []model.PitchTypeSummary{}, nil
	}
	return []model.PitchTypeSummary{
		{PitchType: model.String("FF"), PitchCount: 60, UsagePct: model.Float(60), AvgSpeed: model.Float(96.1), AvgHitExitSpeed: model.Float(90)},
		{PitchType: model.String("SL"), PitchCount: 40, UsagePct: model.Float(40), AvgSpeed: model.Float(86.4), AvgHitExitSpeed: model.Float(84.2)},
	}, nil
}

func (m *mockDependencies) Highlights(ctx context.Context, id model.PitcherID) (scoring.PitcherHighlights, error) {
	rows, err := m.Summary(ctx, id)
	if err != nil {
		return scoring.PitcherHighlights{}, err
	}
	return scoring.Highlights(rows), nil
}

func (m *mockDependencies) StuffScore(ctx context.Context, population string) (*repository.Snapshot, error) {
	m.lastCtxErr = ctx.Err()
	if m.block {
		<-ctx.Done()
		return nil, fmt.Errorf("load roster: %w", ctx.Err())
	}
	if err := m.population(population); err != nil {
		return nil, err
	}
	return m.snap, nil
}

func (m *mockDependencies) Refresh(_ context.Context, population string) (*repository.Snapshot, error) {
	if err := m.population(population); err != nil {
		return nil, err
	}
	m.refreshed = append(m.refreshed, population)
	return m.snap, nil
}

func (m *mockDependencies) ScheduleRefresh(_ context.Context, population, reason string) (bool, error) {
	if err := m.population(population); err != nil {
		return false, err
	}
	if m.queueErr != nil {
		return false, m.queueErr
	}
	for _, p := range m.scheduled {
		if p == population {
			return false, nil
		}
	}
	m.scheduled = append(m.scheduled, population)
	return true, nil
}

func (m *mockDependencies) Rank(ctx context.Context, population string, id model.PitcherID) (model.StuffScoreResult, error) {
	snap, err := m.StuffScore(ctx, population)
	if err != nil {
		return model.StuffScoreResult{}, err
	}
	return snap.Rank(id)
}

func (m *mockDependencies) Score(_ context.Context, pitchers []service.PitcherInput) ([]model.StuffScoreResult, model.PopulationStats, error) {
	m.scored = pitchers
	if len(pitchers) > 1 && pitchers[0].PitcherID == pitchers[1].PitcherID {
		return nil, nil, fmt.Errorf("%w: duplicate pitcher_id", service.ErrInvalidInput)
	}
	out := make([]model.StuffScoreResult, len(pitchers))
	for i, p := range pitchers {
		out[i] = model.StuffScoreResult{Rank: i + 1, PitcherID: p.PitcherID, Name: p.Name, DisplayScore: 50}
	}
	return out, model.PopulationStats{}, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type leaderboardBody struct {
	Population  string                   `json:"population"`
	GeneratedAt string                   `json:"generated_at"`
	Leaderboard []model.StuffScoreResult `json:"leaderboard"`
	LeagueStats model.PopulationStats    `json:"league_stats"`
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, 2)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("Then health and metrics expose prometheus text", func() {
			for _, path := range []string{"/healthz", "/metrics"} {
				w := do(mux, "GET", path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "stuffscore_leaderboard")
			}
		})

		Convey("Then stats are served as JSON", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown routes are 404 and wrong methods are 405", func() {
			So(do(mux, "GET", "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, "POST", "/pitchers", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestPitchersRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDependencies())

		Convey("When listing the main and free agent rosters", func() {
			var main, fa []model.Pitcher
			w := do(mux, "GET", "/pitchers", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(json.Unmarshal(w.Body.Bytes(), &main), ShouldBeNil)
			So(main, ShouldResemble, []model.Pitcher{{ID: 1, Name: "Logan Webb"}})

			w = do(mux, "GET", "/free_agents", "")
			So(json.Unmarshal(w.Body.Bytes(), &fa), ShouldBeNil)
			So(fa, ShouldHaveLength, 2)
			So(w.Body.String(), ShouldContainSubstring, `"pitcher_id":11`)
		})

		Convey("When reading a summary", func() {
			w := do(mux, "GET", "/pitchers/11/summary", "")
			var rows []model.PitchTypeSummary
			So(w.Code, ShouldEqual, http.StatusOK)
			So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].Label(), ShouldEqual, "FF")
		})

		Convey("When reading a summary for a pitcher without pitches", func() {
			w := do(mux, "GET", "/pitchers/99/summary", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When reading highlights", func() {
			w := do(mux, "GET", "/pitchers/11/highlights", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]*model.PitchTypeSummary
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["most_used"].Label(), ShouldEqual, "FF")
			So(body["hardest"].Label(), ShouldEqual, "FF")
			So(body["soft_contact"].Label(), ShouldEqual, "SL")
		})

		Convey("When highlights have no candidates", func() {
			w := do(mux, "GET", "/pitchers/99/highlights", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"most_used":null`)
		})

		Convey("When the id is not a number", func() {
			w := do(mux, "GET", "/pitchers/abc/summary", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
		})
	})
}

func TestLeaderboardRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When reading the free agent stuff score", func() {
			w := do(mux, "GET", "/free_agents/stuff_score", "")
			var body leaderboardBody
			So(w.Code, ShouldEqual, http.StatusOK)
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then the full leaderboard and league stats are returned", func() {
				So(body.Population, ShouldEqual, "free_agents")
				So(body.GeneratedAt, ShouldEqual, "2025-10-01T12:00:00Z")
				So(body.Leaderboard, ShouldHaveLength, 3)
				So(body.Leaderboard[0].Name, ShouldEqual, "Dylan Cease")
				So(body.LeagueStats["speed"].Count, ShouldEqual, 3)
			})
		})

		Convey("When reading a population with a limit", func() {
			w := do(mux, "GET", "/populations/free_agents/stuff_score?limit=2", "")
			var body leaderboardBody
			So(w.Code, ShouldEqual, http.StatusOK)
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Leaderboard, ShouldHaveLength, 2)
		})

		Convey("When the limit is invalid or above the cap", func() {
			for _, q := range []string{"limit=0", "limit=-1", "limit=abc", "limit=3"} {
				w := do(mux, "GET", "/populations/free_agents/stuff_score?"+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the population is unknown", func() {
			w := do(mux, "GET", "/populations/bullpen/stuff_score", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, `"code":"not_found"`)
		})

		Convey("When ranking one pitcher", func() {
			w := do(mux, "GET", "/populations/free_agents/stuff_score/12", "")
			var r model.StuffScoreResult
			So(w.Code, ShouldEqual, http.StatusOK)
			So(json.Unmarshal(w.Body.Bytes(), &r), ShouldBeNil)
			So(r.Rank, ShouldEqual, 2)

			So(do(mux, "GET", "/populations/free_agents/stuff_score/404", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, "GET", "/populations/free_agents/stuff_score/x", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When refreshing a population", func() {
			w := do(mux, "POST", "/populations/main/refresh", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.refreshed, ShouldResemble, []string{"main"})
		})

		Convey("When queueing an async refresh", func() {
			w := do(mux, "POST", "/populations/main/refresh?async=true", "")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
			So(w.Body.String(), ShouldContainSubstring, `"duplicate":false`)
			So(deps.refreshed, ShouldBeEmpty)

			w = do(mux, "POST", "/populations/main/refresh?async=1", "")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)

			So(do(mux, "POST", "/populations/main/refresh?async=maybe", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/populations/bullpen/refresh?async=true", "").Code, ShouldEqual, http.StatusNotFound)

			deps.queueErr = service.ErrQueueFull
			So(do(mux, "POST", "/populations/free_agents/refresh?async=true", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When async is explicitly false", func() {
			w := do(mux, "POST", "/populations/main/refresh?async=false", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.refreshed, ShouldResemble, []string{"main"})
		})

		Convey("When the service fails", func() {
			deps.err = errors.New("database is locked")
			w := do(mux, "GET", "/free_agents/stuff_score", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "database is locked")
		})

		Convey("When the service is not started", func() {
			deps.err = service.ErrNotStarted
			So(do(mux, "GET", "/free_agents/stuff_score", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestScoreRoute(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When posting an ad-hoc population", func() {
			body := `{"pitchers":[{"pitcher_id":1,"name":"A","pitch_types":[{"pitch_type":"FF","pitch_count":10,"usage_pct":100,"avg_speed":95}]},{"pitcher_id":2,"name":"B"}]}`
			w := do(mux, "POST", "/stuff_score", body)

			Convey("Then the body is decoded and scored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.scored, ShouldHaveLength, 2)
				So(*deps.scored[0].PitchTypes[0].AvgSpeed, ShouldEqual, 95)
				So(deps.scored[0].PitchTypes[0].AvgSpinRate, ShouldBeNil)
				So(w.Body.String(), ShouldContainSubstring, `"population":"ad_hoc"`)
			})
		})

		Convey("When the body is malformed", func() {
			So(do(mux, "POST", "/stuff_score", `{"pitchers":`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/stuff_score", `{"players":[]}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service rejects the input", func() {
			w := do(mux, "POST", "/stuff_score", `{"pitchers":[{"pitcher_id":1},{"pitcher_id":1}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMiddlewareStack(t *testing.T) {
	Convey("Given the full middleware stack", t, func() {
		deps := newMockDependencies()
		h := api.Handler(newMux(deps), []string{"http://localhost:5173"}, 50*time.Millisecond, logger.Get())

		Convey("When no request id is sent", func() {
			w := do(h, "GET", "/stats", "")

			Convey("Then one is generated and echoed", func() {
				id := w.Header().Get(api.RequestIDHeader)
				So(id, ShouldHaveLength, 36)
				So(w.Body.String(), ShouldContainSubstring, id)
			})
		})

		Convey("When a request id is sent", func() {
			req := httptest.NewRequest("GET", "/stats", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("When an allowed origin calls", func() {
			req := httptest.NewRequest("GET", "/pitchers", http.NoBody)
			req.Header.Set("Origin", "http://localhost:5173")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://localhost:5173")
		})

		Convey("When another origin calls", func() {
			req := httptest.NewRequest("GET", "/pitchers", http.NoBody)
			req.Header.Set("Origin", "https://elsewhere.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
		})

		Convey("When a handler runs", func() {
			do(h, "GET", "/free_agents/stuff_score", "")

			Convey("Then its context carries a live deadline", func() {
				So(deps.lastCtxErr, ShouldBeNil)
			})
		})
	})
}

func TestWriteFailureTimeout(t *testing.T) {
	Convey("Given a handler whose request deadline has passed", t, func() {
		deps := newMockDependencies()
		deps.err = fmt.Errorf("load roster: %w", context.DeadlineExceeded)
		mux := newMux(deps)

		Convey("Then the response is a gateway timeout", func() {
			So(do(mux, "GET", "/free_agents/stuff_score", "").Code, ShouldEqual, http.StatusGatewayTimeout)
		})
	})
}

func TestRequestDeadline(t *testing.T) {
	Convey("Given a leaderboard read that outlives the request timeout", t, func() {
		deps := newMockDependencies()
		deps.block = true
		h := api.Handler(newMux(deps), []string{"*"}, 10*time.Millisecond, logger.Get())

		Convey("Then the response is a timeout attributed to the request deadline", func() {
			w := do(h, "GET", "/free_agents/stuff_score", "")
			So(w.Code, ShouldEqual, http.StatusGatewayTimeout)
			So(w.Body.String(), ShouldContainSubstring, api.ErrTimeout.Error())
		})
	})

	Convey("Given the timeout middleware", t, func() {
		var cause error
		h := api.TimeoutMiddleware(time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			cause = context.Cause(r.Context())
		}))

		Convey("Then an expired request reports ErrTimeout as its cause", func() {
			do(h, "GET", "/", "")
			So(errors.Is(cause, api.ErrTimeout), ShouldBeTrue)
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given op errors", t, func() {
		Convey("When created from a kind", func() {
			err := api.NewKind("api.summary", api.ErrBadRequest)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.summary: bad request")
		})

		Convey("When wrapping a cause with a kind", func() {
			cause := errors.New("unexpected EOF")
			err := api.WrapKind("api.score", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.score: bad request: unexpected EOF")
		})

		Convey("When wrapping nil", func() {
			So(api.Wrap("op", nil), ShouldBeNil)
			So(api.WrapKind("op", api.ErrBadRequest, nil), ShouldBeNil)
		})

		Convey("When wrapping a sentinel chain", func() {
			err := api.Wrap("api.get_rank", fmt.Errorf("%w: pitcher 4", repository.ErrNotFound))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			var opErr *api.OpError
			So(errors.As(err, &opErr), ShouldBeTrue)
			So(opErr.Op, ShouldEqual, "api.get_rank")
		})
	})
}
