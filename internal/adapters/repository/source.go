package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/okian/stuffscore/internal/domain/model"
	"github.com/okian/stuffscore/pkg/metrics"
)

// Source reads rosters and pitch-type summaries.
type Source interface {
	// Pitchers returns the pitchers whose display name is in names and who
	// have at least one pitch, ordered by name.
	Pitchers(ctx context.Context, names []string) ([]model.Pitcher, error)
	// Summary returns a pitcher's pitch-type rows rounded for display.
	Summary(ctx context.Context, id model.PitcherID) ([]model.PitchTypeSummary, error)
	// Repertoire returns the same rows at full precision for scoring.
	Repertoire(ctx context.Context, id model.PitcherID) ([]model.PitchTypeSummary, error)
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS players (
  player_id INTEGER PRIMARY KEY,
  name_use  TEXT NOT NULL,
  name_last TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pitches (
  pitch_id               INTEGER PRIMARY KEY AUTOINCREMENT,
  pitcher_id             INTEGER NOT NULL,
  pitch_type             TEXT,
  release_speed          REAL,
  horizontal_break       REAL,
  induced_vertical_break REAL,
  spin_rate              REAL,
  hit_exit_speed         REAL,
  hit_launch_angle       REAL
);

CREATE INDEX IF NOT EXISTS idx_pitches_pitcher ON pitches(pitcher_id);
`

const pitchersQuery = `
SELECT DISTINCT
    pl.player_id AS pitcher_id,
    pl.name_use || ' ' || pl.name_last AS name
FROM players pl
INNER JOIN pitches pt ON pl.player_id = pt.pitcher_id
WHERE pl.name_use || ' ' || pl.name_last IN (%s)
ORDER BY name, pitcher_id;`

// summaryQuery groups a pitcher's pitches by type. The %s verbs receive
// the averaged column expressions so display and scoring share one shape.
const summaryQuery = `
WITH pitcher_pitches AS (
    SELECT * FROM pitches WHERE pitcher_id = ?
),
tot AS (
    SELECT COUNT(*) AS total_pitches FROM pitcher_pitches
)
SELECT
    pp.pitch_type,
    COUNT(*) AS pitch_count,
    ROUND(100.0 * COUNT(*) / tot.total_pitches, 1) AS usage_pct,
    %s AS avg_speed,
    %s AS avg_horizontal_break,
    %s AS avg_induced_vertical_break,
    %s AS avg_spin_rate,
    %s AS avg_hit_exit_speed,
    %s AS avg_hit_launch_angle
FROM pitcher_pitches pp
CROSS JOIN tot
GROUP BY pp.pitch_type, tot.total_pitches
ORDER BY pitch_count DESC, pp.pitch_type;`

var (
	roundedSummaryQuery = fmt.Sprintf(summaryQuery,
		"ROUND(AVG(pp.release_speed), 1)",
		"ROUND(AVG(pp.horizontal_break), 2)",
		"ROUND(AVG(pp.induced_vertical_break), 2)",
		"ROUND(AVG(pp.spin_rate), 0)",
		"ROUND(AVG(pp.hit_exit_speed), 1)",
		"ROUND(AVG(pp.hit_launch_angle), 1)",
	)
	rawSummaryQuery = fmt.Sprintf(summaryQuery,
		"AVG(pp.release_speed)",
		"AVG(pp.horizontal_break)",
		"AVG(pp.induced_vertical_break)",
		"AVG(pp.spin_rate)",
		"AVG(pp.hit_exit_speed)",
		"AVG(pp.hit_launch_angle)",
	)
)

// SQLiteSource reads the players and pitches tables of a SQLite database.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn, pings it and ensures the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSource, dsn, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrSource, dsn, err)
	}
	s := NewSQLiteSource(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteSource wraps an already open database.
func NewSQLiteSource(db *sql.DB) *SQLiteSource {
	return &SQLiteSource{db: db}
}

// EnsureSchema creates the players and pitches tables if absent.
func (s *SQLiteSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQLite); err != nil {
		return fmt.Errorf("%w: ensure schema: %w", ErrSource, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Pitchers implements Source.
func (s *SQLiteSource) Pitchers(ctx context.Context, names []string) (out []model.Pitcher, err error) {
	if len(names) == 0 {
		return []model.Pitcher{}, nil
	}
	defer observe("pitchers", time.Now(), &err)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(pitchersQuery, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: pitchers: %w", ErrSource, err)
	}
	defer rows.Close()

	out = make([]model.Pitcher, 0, len(names))
	for rows.Next() {
		var p model.Pitcher
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("%w: scan pitcher: %w", ErrSource, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: pitchers: %w", ErrSource, err)
	}
	return out, nil
}

// Summary implements Source.
func (s *SQLiteSource) Summary(ctx context.Context, id model.PitcherID) (out []model.PitchTypeSummary, err error) {
	defer observe("summary", time.Now(), &err)
	return s.summaries(ctx, roundedSummaryQuery, id)
}

// Repertoire implements Source.
func (s *SQLiteSource) Repertoire(ctx context.Context, id model.PitcherID) (out []model.PitchTypeSummary, err error) {
	defer observe("repertoire", time.Now(), &err)
	return s.summaries(ctx, rawSummaryQuery, id)
}

func (s *SQLiteSource) summaries(ctx context.Context, query string, id model.PitcherID) ([]model.PitchTypeSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, int64(id))
	if err != nil {
		return nil, fmt.Errorf("%w: summary %d: %w", ErrSource, id, err)
	}
	defer rows.Close()

	out := []model.PitchTypeSummary{}
	for rows.Next() {
		var (
			pitchType sql.NullString
			count     int
			cols      [7]sql.NullFloat64
		)
		if err := rows.Scan(&pitchType, &count, &cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6]); err != nil {
			return nil, fmt.Errorf("%w: scan summary %d: %w", ErrSource, id, err)
		}
		row := model.PitchTypeSummary{
			PitchCount:              count,
			UsagePct:                nullable(cols[0]),
			AvgSpeed:                nullable(cols[1]),
			AvgHorizontalBreak:      nullable(cols[2]),
			AvgInducedVerticalBreak: nullable(cols[3]),
			AvgSpinRate:             nullable(cols[4]),
			AvgHitExitSpeed:         nullable(cols[5]),
			AvgHitLaunchAngle:       nullable(cols[6]),
		}
		if pitchType.Valid {
			row.PitchType = model.String(pitchType.String)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: summary %d: %w", ErrSource, id, err)
	}
	return out, nil
}

// InsertPlayer adds or replaces a players row.
func (s *SQLiteSource) InsertPlayer(ctx context.Context, id model.PitcherID, nameUse, nameLast string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO players (player_id, name_use, name_last) VALUES (?, ?, ?)`,
		int64(id), nameUse, nameLast)
	if err != nil {
		return fmt.Errorf("%w: insert player %d: %w", ErrSource, id, err)
	}
	return nil
}

// InsertPitches appends pitches in a single transaction.
func (s *SQLiteSource) InsertPitches(ctx context.Context, pitches []model.Pitch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrSource, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pitches
  (pitcher_id, pitch_type, release_speed, horizontal_break, induced_vertical_break, spin_rate, hit_exit_speed, hit_launch_angle)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrSource, err)
	}
	defer stmt.Close()

	for _, p := range pitches {
		if _, err := stmt.ExecContext(ctx, int64(p.PitcherID), p.PitchType,
			p.ReleaseSpeed, p.HorizontalBreak, p.InducedVerticalBreak,
			p.SpinRate, p.HitExitSpeed, p.HitLaunchAngle); err != nil {
			return fmt.Errorf("%w: insert pitch for %d: %w", ErrSource, p.PitcherID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrSource, err)
	}
	return nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float(v.Float64)
}

func observe(query string, start time.Time, err *error) {
	metrics.RecordSourceQuery(query, float64(time.Since(start).Microseconds())/1000, *err)
}
