package scanner

import (
	"context"
	"errors"

	"github.com/aleister1102/pendoc/internal/aggregator"
	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/datastore"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/scheduler"
)

// resume carries over targets that earlier runs already captured. Carried results are appended
// to agg before the scheduler starts so the final result set still covers the whole work set.
// It returns the targets left to capture and the number carried over.
func (s *Scanner) resume(ctx context.Context, workSet []models.CanonicalTarget, history *scheduler.HistoryStore, agg *aggregator.Aggregator) ([]models.CanonicalTarget, int) {
	previous := s.previousResults()

	var records map[string]scheduler.CapturedRecord
	if history != nil {
		var err error
		records, err = history.CapturedRecords(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Could not read captured targets from history")
		}
	}

	remaining := make([]models.CanonicalTarget, 0, len(workSet))
	resumed := 0
	for _, target := range workSet {
		if agg.Has(target.Key()) {
			continue
		}
		result, ok := carriedResult(target, previous, records)
		if !ok {
			remaining = append(remaining, target)
			continue
		}
		if err := agg.Append(result); err != nil {
			s.logger.Warn().Err(err).Str("target", target.URL()).Msg("Could not carry over result, capturing again")
			remaining = append(remaining, target)
			continue
		}
		resumed++
	}

	s.logger.Info().
		Int("resumed", resumed).
		Int("remaining", len(remaining)).
		Int("previous_results", len(previous)).
		Int("history_records", len(records)).
		Msg("Resume reconciliation complete")

	return remaining, resumed
}

// previousResults loads the succeeded results of the last stored result set, keyed by identity key.
func (s *Scanner) previousResults() map[string]models.TargetResult {
	rs, err := datastore.LoadResultSet(s.config.ResultsPath(), s.logger)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("Could not load previous results")
		}
		return nil
	}
	captured := datastore.CapturedKeys(rs)
	previous := make(map[string]models.TargetResult, len(captured))
	for _, r := range rs.Results {
		if _, ok := captured[r.Key]; ok {
			previous[r.Key] = r
		}
	}
	return previous
}

// carriedResult prefers the full previous result and falls back to the history row, which
// only knows the artifact and status.
func carriedResult(target models.CanonicalTarget, previous map[string]models.TargetResult, records map[string]scheduler.CapturedRecord) (models.TargetResult, bool) {
	key := target.Key()

	if prev, ok := previous[key]; ok {
		prev.Target = target
		prev.Key = key
		prev.URL = target.URL()
		prev.Resumed = true
		return prev, true
	}

	if rec, ok := records[key]; ok {
		result := models.NewTargetResult(target, models.StatusSucceeded)
		result.Capture = &models.CaptureSuccess{
			ArtifactRef: rec.ArtifactRef,
			HTTPStatus:  rec.HTTPStatus,
		}
		result.CompletedAt = rec.CapturedAt
		result.Resumed = true
		return result, true
	}

	return models.TargetResult{}, false
}
