package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Run history statuses.
const (
	RunStatusStarted   = "STARTED"
	RunStatusCompleted = "COMPLETED"
	RunStatusCancelled = "CANCELLED"
	RunStatusFailed    = "FAILED"
)

// HistoryStore records runs and captured targets in sqlite so later runs can resume.
type HistoryStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// RunHistoryEntry represents a record in the run_history table.
type RunHistoryEntry struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	NumTargets int
	Succeeded  int
	Failed     int
	Skipped    int
	ReportPath sql.NullString
}

// CapturedRecord is one row of captured_targets.
type CapturedRecord struct {
	Key         string
	URL         string
	ArtifactRef string
	HTTPStatus  int
	RunID       string
	CapturedAt  time.Time
}

// NewHistoryStore opens the database at dataSourceName and ensures the schema exists.
func NewHistoryStore(dataSourceName string, logger zerolog.Logger) (*HistoryStore, error) {
	logger = logger.With().Str("component", "HistoryStore").Logger()

	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history database directory %s: %w", dbDir, err)
	}

	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed for %s: %w", dataSourceName, err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	store := &HistoryStore{db: db, logger: logger}
	if err := store.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logger.Debug().Str("path", dataSourceName).Msg("History database ready")
	return store, nil
}

// Close closes the database connection.
func (h *HistoryStore) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// InitSchema creates the run_history and captured_targets tables if needed.
func (h *HistoryStore) InitSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS run_history (
			run_id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			status TEXT NOT NULL,
			num_targets INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			report_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS captured_targets (
			target_key TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			artifact_ref TEXT,
			http_status INTEGER,
			run_id TEXT NOT NULL,
			captured_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := h.db.Exec(stmt); err != nil {
			h.logger.Error().Err(err).Msg("Failed to initialize schema")
			return err
		}
	}
	return nil
}

// RecordRunStart inserts a run with status STARTED.
func (h *HistoryStore) RecordRunStart(ctx context.Context, runID string, numTargets int, startedAt time.Time) error {
	const query = `INSERT INTO run_history (run_id, started_at, status, num_targets) VALUES (?, ?, ?, ?)`
	if _, err := h.db.ExecContext(ctx, query, runID, startedAt.UTC(), RunStatusStarted, numTargets); err != nil {
		return fmt.Errorf("failed to insert run start record: %w", err)
	}
	h.logger.Info().Str("run_id", runID).Int("targets", numTargets).Msg("Recorded run start")
	return nil
}

// RecordRunFinish updates a run with its final status and counters.
func (h *HistoryStore) RecordRunFinish(ctx context.Context, runID, status string, summary models.ResultSummary, finishedAt time.Time, reportPath string) error {
	const query = `UPDATE run_history SET finished_at = ?, status = ?, num_targets = ?, succeeded = ?, failed = ?, skipped = ?, report_path = ? WHERE run_id = ?`
	res, err := h.db.ExecContext(ctx, query,
		finishedAt.UTC(), status, summary.Total, summary.Succeeded, summary.Failed, summary.Skipped,
		sql.NullString{String: reportPath, Valid: reportPath != ""}, runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found in history", runID)
	}
	h.logger.Info().Str("run_id", runID).Str("status", status).Msg("Recorded run completion")
	return nil
}

// RecordCaptured upserts every succeeded result of a run into captured_targets.
func (h *HistoryStore) RecordCaptured(ctx context.Context, runID string, results []models.TargetResult) (int, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO captured_targets (target_key, url, artifact_ref, http_status, run_id, captured_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(target_key) DO UPDATE SET
		url = excluded.url,
		artifact_ref = excluded.artifact_ref,
		http_status = excluded.http_status,
		run_id = excluded.run_id,
		captured_at = excluded.captured_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare captured insert: %w", err)
	}
	defer stmt.Close()

	recorded := 0
	for _, r := range results {
		if r.Status != models.StatusSucceeded || r.Capture == nil || r.Resumed {
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.Key, r.URL, r.Capture.ArtifactRef, r.Capture.HTTPStatus, runID, r.CompletedAt.UTC()); err != nil {
			return 0, fmt.Errorf("failed to record captured target %s: %w", r.Key, err)
		}
		recorded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit captured targets: %w", err)
	}
	h.logger.Debug().Str("run_id", runID).Int("recorded", recorded).Msg("Recorded captured targets")
	return recorded, nil
}

// CapturedRecords returns the stored row of every previously captured target keyed by identity key.
func (h *HistoryStore) CapturedRecords(ctx context.Context) (map[string]CapturedRecord, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT target_key, url, artifact_ref, http_status, run_id, captured_at FROM captured_targets`)
	if err != nil {
		return nil, fmt.Errorf("failed to query captured targets: %w", err)
	}
	defer rows.Close()

	records := make(map[string]CapturedRecord)
	for rows.Next() {
		var rec CapturedRecord
		var artifact sql.NullString
		var status sql.NullInt64
		if err := rows.Scan(&rec.Key, &rec.URL, &artifact, &status, &rec.RunID, &rec.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan captured target: %w", err)
		}
		rec.ArtifactRef = artifact.String
		rec.HTTPStatus = int(status.Int64)
		records[rec.Key] = rec
	}
	return records, rows.Err()
}

// LastRun returns the most recent run, or sql.ErrNoRows when there is none.
func (h *HistoryStore) LastRun(ctx context.Context) (*RunHistoryEntry, error) {
	const query = `SELECT run_id, started_at, finished_at, status, num_targets, succeeded, failed, skipped, report_path
	FROM run_history ORDER BY started_at DESC LIMIT 1`

	var e RunHistoryEntry
	err := h.db.QueryRowContext(ctx, query).Scan(
		&e.RunID, &e.StartedAt, &e.FinishedAt, &e.Status, &e.NumTargets,
		&e.Succeeded, &e.Failed, &e.Skipped, &e.ReportPath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}
	return &e, nil
}
