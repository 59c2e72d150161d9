package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/stuffscore/internal/domain/model"
	"github.com/okian/stuffscore/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// getJSON performs a GET request and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d: %s", ErrService, rawURL, resp.StatusCode, body)
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Debug(ctx, "checking service health")
	return client.getJSON(ctx, config.BaseURL+"/healthz", nil)
}

// fetchLeaderboard retrieves the population's leaderboard from the service.
func fetchLeaderboard(ctx context.Context, client *HTTPClient, config *Config) (*Report, error) {
	u := config.BaseURL + "/populations/" + url.PathEscape(config.Population) + "/stuff_score"
	if config.TopN > 0 {
		u += "?limit=" + strconv.Itoa(config.TopN)
	}
	var rep Report
	if err := client.getJSON(ctx, u, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// checkRanks looks every leaderboard entry up individually and counts
// entries whose rank or score disagree with the leaderboard.
func checkRanks(ctx context.Context, client *HTTPClient, config *Config, rep *Report, stats *Stats) error {
	var (
		checked    int64
		mismatches int64
	)
	base := config.BaseURL + "/populations/" + url.PathEscape(config.Population) + "/stuff_score/"

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for _, want := range rep.Leaderboard {
		g.Go(func() error {
			var got model.StuffScoreResult
			if err := client.getJSON(gctx, base+strconv.FormatInt(int64(want.PitcherID), 10), &got); err != nil {
				return err
			}
			atomic.AddInt64(&checked, 1)
			if got.Rank != want.Rank || got.RawScore != want.RawScore {
				atomic.AddInt64(&mismatches, 1)
				logger.Get().Warn(gctx, "rank lookup disagrees with leaderboard",
					logger.Int("pitcherId", int(want.PitcherID)),
					logger.Int("leaderboardRank", want.Rank),
					logger.Int("lookupRank", got.Rank))
			}
			return nil
		})
	}
	err := g.Wait()
	stats.RanksChecked = int(checked)
	stats.RankMismatches = int(mismatches)
	if err != nil {
		return fmt.Errorf("rank lookup failed: %w", err)
	}
	if mismatches > 0 {
		return fmt.Errorf("%w: %d of %d rank lookups disagree", ErrInconsistent, mismatches, checked)
	}
	return nil
}
