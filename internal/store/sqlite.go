// Package store persists selection runs to a local SQLite database so
// season-over-season draws can be compared. It is an optional output sink;
// the pipeline never reads it back.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/prairiefish/survey-cli/internal/model"
)

// Store wraps a SQLite run-history database.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at the given path and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS selection_runs (
	id          TEXT PRIMARY KEY,
	season      TEXT NOT NULL,
	sample_size INTEGER NOT NULL,
	seed        INTEGER NOT NULL,
	candidates  INTEGER NOT NULL,
	fit         TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS selected_sites (
	run_id         TEXT NOT NULL REFERENCES selection_runs(id),
	pool_id        TEXT NOT NULL,
	longitude      REAL NOT NULL,
	latitude       REAL NOT NULL,
	mean_depth     REAL NOT NULL,
	hydraulic_head REAL NOT NULL,
	psi            REAL NOT NULL,
	psi_lower      REAL NOT NULL,
	psi_upper      REAL NOT NULL,
	PRIMARY KEY (run_id, pool_id)
);

CREATE INDEX IF NOT EXISTS idx_selection_runs_season ON selection_runs(season);
CREATE INDEX IF NOT EXISTS idx_selected_sites_run_id ON selected_sites(run_id);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one persisted selection run.
type Run struct {
	ID         string           `json:"id"`
	Season     string           `json:"season"`
	SampleSize int              `json:"sample_size"`
	Seed       int64            `json:"seed"`
	Candidates int              `json:"candidates"`
	Fit        model.FitSummary `json:"fit"`
	CreatedAt  time.Time        `json:"created_at"`
}

// SaveSelection writes a selection and its fit summary in one transaction
// and returns the new run ID.
func (s *Store) SaveSelection(ctx context.Context, sel *model.Selection, fit model.FitSummary) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	fitJSON, err := json.Marshal(fit)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal fit")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "store: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO selection_runs (id, season, sample_size, seed, candidates, fit, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, sel.Season, sel.SampleSize, sel.Seed, sel.Candidates, string(fitJSON), now,
	)
	if err != nil {
		return "", eris.Wrap(err, "store: insert run")
	}

	for _, site := range sel.Sites {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO selected_sites (run_id, pool_id, longitude, latitude, mean_depth, hydraulic_head, psi, psi_lower, psi_upper) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, site.PoolID, site.Longitude, site.Latitude, site.MeanDepth, site.HydraulicHead, site.Psi, site.Lower, site.Upper,
		)
		if err != nil {
			return "", eris.Wrapf(err, "store: insert site %s", site.PoolID)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "store: commit")
	}
	return id, nil
}

// GetRun loads a run and its selected sites.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, []model.ScoredSite, error) {
	var (
		run     Run
		fitJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, season, sample_size, seed, candidates, fit, created_at FROM selection_runs WHERE id = ?`,
		runID,
	).Scan(&run.ID, &run.Season, &run.SampleSize, &run.Seed, &run.Candidates, &fitJSON, &run.CreatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil, eris.Errorf("store: run %s not found", runID)
		}
		return nil, nil, eris.Wrapf(err, "store: get run %s", runID)
	}
	if err := json.Unmarshal([]byte(fitJSON), &run.Fit); err != nil {
		return nil, nil, eris.Wrap(err, "store: unmarshal fit")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pool_id, longitude, latitude, mean_depth, hydraulic_head, psi, psi_lower, psi_upper FROM selected_sites WHERE run_id = ? ORDER BY pool_id`,
		runID,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "store: query sites for run %s", runID)
	}
	defer rows.Close()

	var sites []model.ScoredSite
	for rows.Next() {
		var site model.ScoredSite
		if err := rows.Scan(
			&site.PoolID, &site.Longitude, &site.Latitude, &site.MeanDepth,
			&site.HydraulicHead, &site.Psi, &site.Lower, &site.Upper,
		); err != nil {
			return nil, nil, eris.Wrap(err, "store: scan site row")
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "store: iterate site rows")
	}
	return &run, sites, nil
}

// ListRuns returns runs in reverse chronological order.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, season, sample_size, seed, candidates, fit, created_at FROM selection_runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			fitJSON string
		)
		if err := rows.Scan(&run.ID, &run.Season, &run.SampleSize, &run.Seed, &run.Candidates, &fitJSON, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan run row")
		}
		if err := json.Unmarshal([]byte(fitJSON), &run.Fit); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal fit")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate run rows")
	}
	return runs, nil
}
