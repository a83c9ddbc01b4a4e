// Package store keeps a history of evaluation runs in SQLite so models and
// cutoffs can be compared over time.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paveg/churnscope/internal/evaluate"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("run not found")

const schema = `
	CREATE TABLE IF NOT EXISTS evaluation_runs (
		run_id          TEXT PRIMARY KEY,
		model           TEXT NOT NULL,
		cutoff          DOUBLE NOT NULL,
		row_count       BIGINT NOT NULL,
		true_positive   BIGINT NOT NULL,
		false_positive  BIGINT NOT NULL,
		true_negative   BIGINT NOT NULL,
		false_negative  BIGINT NOT NULL,
		precision       DOUBLE,
		recall          DOUBLE,
		auc             DOUBLE,
		youden_cutoff   DOUBLE,
		youden_index    DOUBLE,
		params_json     TEXT,
		created_at      BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluation_runs_created ON evaluation_runs(created_at);
`

// Run is one persisted evaluation. Undefined or unavailable metrics are
// nil and stored as NULL.
type Run struct {
	RunID        string                   `json:"run_id"`
	Model        string                   `json:"model"`
	Cutoff       float64                  `json:"cutoff"`
	Rows         int                      `json:"rows"`
	Counts       evaluate.ConfusionCounts `json:"counts"`
	Precision    *float64                 `json:"precision,omitempty"`
	Recall       *float64                 `json:"recall,omitempty"`
	AUC          *float64                 `json:"auc,omitempty"`
	YoudenCutoff *float64                 `json:"youden_cutoff,omitempty"`
	YoudenIndex  *float64                 `json:"youden_index,omitempty"`
	ParamsJSON   json.RawMessage          `json:"params_json,omitempty"`
	CreatedAt    int64                    `json:"created_at"`
}

// MetricPtr converts a possibly undefined metric into a nullable value.
func MetricPtr(m evaluate.Metric) *float64 {
	if !m.Defined {
		return nil
	}
	v := m.Value
	return &v
}

// Store persists runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path. Use
// ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// One connection keeps :memory: databases coherent and avoids
	// SQLITE_BUSY between writers of the same file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists run. A missing RunID is filled with a new UUID and a
// zero CreatedAt with the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluation_runs (
			run_id, model, cutoff, row_count,
			true_positive, false_positive, true_negative, false_negative,
			precision, recall, auc, youden_cutoff, youden_index,
			params_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Model, run.Cutoff, run.Rows,
		run.Counts.TruePositive, run.Counts.FalsePositive, run.Counts.TrueNegative, run.Counts.FalseNegative,
		run.Precision, run.Recall, run.AUC, run.YoudenCutoff, run.YoudenIndex,
		params, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT run_id, model, cutoff, row_count,
	       true_positive, false_positive, true_negative, false_negative,
	       precision, recall, auc, youden_cutoff, youden_index,
	       params_json, created_at
	FROM evaluation_runs`

// GetRun returns a single run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, err
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := selectRun + ` ORDER BY created_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run by ID.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM evaluation_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var precision, recall, auc, youdenCut, youdenIdx sql.NullFloat64
	var params sql.NullString
	err := sc.Scan(
		&r.RunID, &r.Model, &r.Cutoff, &r.Rows,
		&r.Counts.TruePositive, &r.Counts.FalsePositive, &r.Counts.TrueNegative, &r.Counts.FalseNegative,
		&precision, &recall, &auc, &youdenCut, &youdenIdx,
		&params, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	r.Precision = nullable(precision)
	r.Recall = nullable(recall)
	r.AUC = nullable(auc)
	r.YoudenCutoff = nullable(youdenCut)
	r.YoudenIndex = nullable(youdenIdx)
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	return &r, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
