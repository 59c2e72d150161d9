package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/stuffscore/internal/adapters/repository"
	service "github.com/okian/stuffscore/internal/app"
	"github.com/okian/stuffscore/internal/config"
	"github.com/okian/stuffscore/internal/domain/model"
	"github.com/okian/stuffscore/internal/domain/scoring"
	"github.com/okian/stuffscore/pkg/logger"
	"github.com/okian/stuffscore/pkg/metrics"
)

// testConfig points a default config at a seeded SQLite file.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pitches.db")

	src, err := repository.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = src.Close() }()

	if err := src.InsertPlayer(ctx, 1, "Ace", "Hurler"); err != nil {
		t.Fatalf("insert player: %v", err)
	}
	if err := src.InsertPlayer(ctx, 2, "Soft", "Tosser"); err != nil {
		t.Fatalf("insert player: %v", err)
	}
	ff := "FF"
	err = src.InsertPitches(ctx, []model.Pitch{
		{PitcherID: 1, PitchType: &ff, ReleaseSpeed: model.Float(98), SpinRate: model.Float(2500)},
		{PitcherID: 2, PitchType: &ff, ReleaseSpeed: model.Float(88), SpinRate: model.Float(2100)},
	})
	if err != nil {
		t.Fatalf("insert pitches: %v", err)
	}

	cfg := config.New()
	cfg.DBPath = path
	cfg.MainPitchers = []string{"Ace Hurler", "Soft Tosser"}
	cfg.FreeAgents = []string{"Soft Tosser"}
	cfg.WorkerCount = 2
	return cfg
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a seeded database and default configuration", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		ctx := context.Background()
		cfg := testConfig(t)

		convey.Convey("When wiring the service with the memory store", func() {
			svc, cleanup, err := newService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer cleanup()

			convey.Convey("Then the main leaderboard should rank the harder thrower first", func() {
				snap, err := svc.StuffScore(ctx, config.PopulationMain)
				convey.So(err, convey.ShouldBeNil)
				convey.So(snap.Len(), convey.ShouldEqual, 2)
				convey.So(snap.Results[0].Name, convey.ShouldEqual, "Ace Hurler")
				convey.So(snap.Results[0].Rank, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When background refresh is disabled", func() {
			cfg.RefreshWorkers = 0
			svc, cleanup, err := newService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer cleanup()

			convey.Convey("Then async refreshes should be refused", func() {
				_, err := svc.ScheduleRefresh(ctx, config.PopulationMain, "requested")
				convey.So(errors.Is(err, service.ErrNoQueue), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the weights are invalid", func() {
			cfg.Weights = map[string]float64{"speed": 2}
			_, _, err := newService(ctx, cfg, logger.Get())

			convey.Convey("Then wiring should fail before touching the database", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, scoring.ErrInvalidWeights), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given metrics export settings", t, func() {
		cfg := config.New()
		cfg.MetricsNamespace = "pitching"
		cfg.MetricsSubsystem = "stuff"
		cfg.MetricsLabels = map[string]string{"env": "staging"}

		convey.Convey("When a manager is built from them", func() {
			reg := prometheus.NewRegistry()
			opts := append(metricsOptions(cfg), metrics.WithPrometheusRegistry(reg), metrics.WithRefreshInterval(time.Millisecond))
			m := metrics.NewManager(opts...)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			m.RunSystemCollector(ctx)

			convey.Convey("Then exported names and labels should follow them", func() {
				mfs, err := reg.Gather()
				convey.So(err, convey.ShouldBeNil)
				var found bool
				for _, mf := range mfs {
					if mf.GetName() != "pitching_stuff_system_goroutines" {
						continue
					}
					found = true
					convey.So(mf.GetMetric()[0].GetLabel()[0].GetValue(), convey.ShouldEqual, "staging")
				}
				convey.So(found, convey.ShouldBeTrue)
			})
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When no redis URL is set", func() {
			store, err := openStore(ctx, cfg)

			convey.Convey("Then a memory store should be used", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := store.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a redis URL is set", func() {
			mr := miniredis.RunT(t)
			cfg.RedisURL = "redis://" + mr.Addr()
			store, err := openStore(ctx, cfg)

			convey.Convey("Then a redis store should be used", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := store.(*repository.RedisStore)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(store.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the redis URL is malformed", func() {
			cfg.RedisURL = "not-a-url://"
			_, err := openStore(ctx, cfg)

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given a wired HTTP server", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		ctx := context.Background()
		cfg := testConfig(t)
		svc, cleanup, err := newService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer cleanup()

		srv := newHTTPServer(ctx, cfg, svc, logger.Get())
		convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)
		convey.So(srv.WriteTimeout, convey.ShouldBeGreaterThan, srv.ReadHeaderTimeout)

		convey.Convey("When requesting the free agent leaderboard", func() {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/free_agents/stuff_score", http.NoBody))

			convey.Convey("Then it should return the single free agent at the display center", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				var body struct {
					Population  string                   `json:"population"`
					Leaderboard []model.StuffScoreResult `json:"leaderboard"`
				}
				convey.So(json.Unmarshal(w.Body.Bytes(), &body), convey.ShouldBeNil)
				convey.So(body.Population, convey.ShouldEqual, config.PopulationFreeAgents)
				convey.So(len(body.Leaderboard), convey.ShouldEqual, 1)
				convey.So(body.Leaderboard[0].DisplayScore, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When queueing an async refresh", func() {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/populations/main/refresh?async=true", http.NoBody))

			convey.Convey("Then the background workers should accept it", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
			})
		})

		convey.Convey("When requesting the API docs", func() {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))

			convey.Convey("Then the OpenAPI document should be served", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "Stuff Score API")
			})
		})

		convey.Convey("When requesting an unknown population", func() {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/populations/bullpen/stuff_score", http.NoBody))

			convey.Convey("Then it should return 404", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
