package aggregator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrFinalized is returned by Append once the result set has been finalized.
	ErrFinalized = errors.New("aggregator already finalized")
	// ErrDuplicateResult is returned when a second result arrives for the same identity key.
	ErrDuplicateResult = errors.New("duplicate result for target")
)

// Aggregator collects terminal results in completion order. It is safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	results   []models.TargetResult
	keys      map[string]struct{}
	finalized *models.ResultSet
	logger    zerolog.Logger
}

// NewAggregator creates an Aggregator for one run.
func NewAggregator(runID string, startedAt time.Time, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		runID:     runID,
		startedAt: startedAt,
		keys:      make(map[string]struct{}),
		logger:    logger.With().Str("component", "Aggregator").Str("run_id", runID).Logger(),
	}
}

// Append records one terminal result.
func (a *Aggregator) Append(result models.TargetResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized != nil {
		return ErrFinalized
	}

	key := result.Key
	if key == "" {
		key = result.Target.Key()
		result.Key = key
	}
	if _, exists := a.keys[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResult, key)
	}

	a.keys[key] = struct{}{}
	a.results = append(a.results, result)
	return nil
}

// Len returns the number of results appended so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Has reports whether a result for key was already appended.
func (a *Aggregator) Has(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.keys[key]
	return ok
}

// Finalize freezes the aggregator and returns the result set. Later calls return the same set.
func (a *Aggregator) Finalize() (*models.ResultSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized != nil {
		return a.finalized, nil
	}

	results := make([]models.TargetResult, len(a.results))
	copy(results, a.results)

	a.finalized = &models.ResultSet{
		RunID:      a.runID,
		StartedAt:  a.startedAt,
		FinishedAt: time.Now(),
		Results:    results,
		Summary:    Summarize(results),
	}

	a.logger.Info().
		Int("total", a.finalized.Summary.Total).
		Int("succeeded", a.finalized.Summary.Succeeded).
		Int("failed", a.finalized.Summary.Failed).
		Int("skipped", a.finalized.Summary.Skipped).
		Msg("Result set finalized")

	return a.finalized, nil
}

// Summarize derives counters and histograms in a single pass.
func Summarize(results []models.TargetResult) models.ResultSummary {
	summary := models.ResultSummary{
		Total:        len(results),
		StatusCodes:  make(map[int]int),
		Technologies: make(map[string]int),
		CMS:          make(map[string]int),
	}

	// technology labels keep the casing first seen for each lower-cased name
	labels := make(map[string]string)

	for _, r := range results {
		summary.TotalAttempt += r.Attempts
		if r.Resumed {
			summary.Resumed++
		}

		switch r.Status {
		case models.StatusSucceeded:
			summary.Succeeded++
		case models.StatusFailed:
			summary.Failed++
		case models.StatusSkipped:
			summary.Skipped++
		}

		if r.Capture != nil && r.Capture.HTTPStatus > 0 {
			summary.StatusCodes[r.Capture.HTTPStatus]++
		}

		// count each technology once per target
		seen := make(map[string]struct{})
		for _, name := range r.Enrichment.TechnologyNames() {
			if name == "" {
				continue
			}
			lower := strings.ToLower(name)
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			label, known := labels[lower]
			if !known {
				label = name
				labels[lower] = name
			}
			summary.Technologies[label]++
			if models.IsCMS(lower) {
				summary.CMS[lower]++
			}
		}
	}

	return summary
}
