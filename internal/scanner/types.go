package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/aleister1102/pendoc/internal/capture"
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/sources"
	"github.com/rs/zerolog"
)

// ErrNoTargets is returned when the inputs yield an empty work set.
var ErrNoTargets = errors.New("no targets found in input sources")

// CaptureEngine is a capture.Capturer that owns a shared resource for the length of a run.
type CaptureEngine interface {
	capture.Capturer
	Start(ctx context.Context) error
	Stop()
}

// EngineFactory builds the capture engine for a run.
type EngineFactory func(cfg *config.GlobalConfig, policy models.CapturePolicy, logger zerolog.Logger) CaptureEngine

// RunSummary describes one finished run and where its output went.
type RunSummary struct {
	RunID        string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Collect      sources.CollectStats
	WorkSetSize  int
	Resumed      int
	Summary      models.ResultSummary
	ResultsPath  string
	ParquetPath  string
	ReportPaths  []string
	CommandFiles map[string]string
	// Errors lists non-fatal persistence and reporting failures.
	Errors []error
}

// Duration is the wall time of the run.
func (rs *RunSummary) Duration() time.Duration {
	return rs.FinishedAt.Sub(rs.StartedAt)
}

// Cancelled reports whether the run was interrupted.
func (rs *RunSummary) Cancelled() bool {
	return rs.Status == StatusCancelled
}

// HasReports checks if reports were generated
func (rs *RunSummary) HasReports() bool {
	return len(rs.ReportPaths) > 0
}

// Run statuses reported in RunSummary.Status.
const (
	StatusCompleted = "COMPLETED"
	StatusPartial   = "PARTIAL_COMPLETE"
	StatusCancelled = "CANCELLED"
)
