package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/pendoc/internal/aggregator"
	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/datastore"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/urlhandler"
)

// Recover rebuilds the HTML report and command files from stored results without capturing.
// Sources are tried in order: results.json, the parquet file, then the run history.
func (s *Scanner) Recover(ctx context.Context) (*RunSummary, error) {
	rs, origin, err := s.loadStoredResults(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("origin", origin).
		Str("run_id", rs.RunID).
		Int("results", len(rs.Results)).
		Msg("Recovering report from stored results")

	summary := &RunSummary{
		RunID:       rs.RunID,
		Status:      StatusCompleted,
		StartedAt:   rs.StartedAt,
		FinishedAt:  rs.FinishedAt,
		WorkSetSize: len(rs.Results),
		Summary:     rs.Summary,
		Resumed:     rs.Summary.Resumed,
	}
	if origin == originResults {
		summary.ResultsPath = s.config.ResultsPath()
	}

	s.generateReports(rs, summary)
	if len(summary.Errors) > 0 {
		summary.Status = StatusPartial
	}
	return summary, nil
}

const (
	originResults = "results"
	originParquet = "parquet"
	originHistory = "history"

	recoveredRunID = "recovered"
)

func (s *Scanner) loadStoredResults(ctx context.Context) (*models.ResultSet, string, error) {
	rs, err := datastore.LoadResultSet(s.config.ResultsPath(), s.logger)
	if err == nil {
		if rs.FinishedAt.IsZero() {
			rs.FinishedAt = latestCompletion(rs.Results)
		}
		return rs, originResults, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, "", err
	}

	if s.config.StorageConfig.ParquetEnabled {
		results, runID, err := datastore.NewParquetReader(s.logger).Read(s.config.ParquetPath())
		switch {
		case err == nil:
			return rebuiltResultSet(runID, results), originParquet, nil
		case !errors.Is(err, common.ErrNotFound):
			return nil, "", err
		}
	}

	if results, runID, err := s.historyResults(ctx); err != nil {
		return nil, "", err
	} else if len(results) > 0 {
		return rebuiltResultSet(runID, results), originHistory, nil
	}

	return nil, "", fmt.Errorf("no stored results under %s: %w", s.config.OutputDir, common.ErrNotFound)
}

// historyResults turns captured-target rows into succeeded results, attributed to the most
// recent recorded run.
func (s *Scanner) historyResults(ctx context.Context) ([]models.TargetResult, string, error) {
	history := s.openHistory()
	if history == nil {
		return nil, "", nil
	}
	defer history.Close()

	records, err := history.CapturedRecords(ctx)
	if err != nil {
		return nil, "", err
	}

	runID := recoveredRunID
	last, err := history.LastRun(ctx)
	switch {
	case err == nil:
		runID = last.RunID
	case !errors.Is(err, sql.ErrNoRows):
		s.logger.Warn().Err(err).Msg("Could not read last run from history")
	}

	policy, err := config.BuildCapturePolicy(s.config)
	if err != nil {
		return nil, "", err
	}
	normalizer := urlhandler.NewNormalizer(s.logger)

	results := make([]models.TargetResult, 0, len(records))
	for _, rec := range records {
		target, err := normalizer.Normalize(models.TargetDescriptor{Raw: rec.URL, Source: models.SourceURLList}, policy)
		if err != nil {
			s.logger.Debug().Err(err).Str("url", rec.URL).Msg("Skipping unparsable history record")
			continue
		}
		result := models.NewTargetResult(target, models.StatusSucceeded)
		result.Key = rec.Key
		result.Capture = &models.CaptureSuccess{ArtifactRef: rec.ArtifactRef, HTTPStatus: rec.HTTPStatus}
		result.CompletedAt = rec.CapturedAt
		results = append(results, result)
	}
	return results, runID, nil
}

func rebuiltResultSet(runID string, results []models.TargetResult) *models.ResultSet {
	rs := &models.ResultSet{
		RunID:      runID,
		Results:    results,
		Summary:    aggregator.Summarize(results),
		FinishedAt: latestCompletion(results),
	}
	rs.StartedAt = rs.FinishedAt
	for _, r := range results {
		if !r.CompletedAt.IsZero() && r.CompletedAt.Before(rs.StartedAt) {
			rs.StartedAt = r.CompletedAt
		}
	}
	return rs
}

// latestCompletion never returns the zero time so the set is always considered finalized.
func latestCompletion(results []models.TargetResult) time.Time {
	var latest time.Time
	for _, r := range results {
		if r.CompletedAt.After(latest) {
			latest = r.CompletedAt
		}
	}
	if latest.IsZero() {
		return time.Now()
	}
	return latest
}
