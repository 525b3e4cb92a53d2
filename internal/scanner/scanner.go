package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/pendoc/internal/aggregator"
	"github.com/aleister1102/pendoc/internal/capture"
	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/enrichment"
	"github.com/aleister1102/pendoc/internal/logger"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/progress"
	"github.com/aleister1102/pendoc/internal/rslimiter"
	"github.com/aleister1102/pendoc/internal/scheduler"
	"github.com/aleister1102/pendoc/internal/sources"
	"github.com/aleister1102/pendoc/internal/urlhandler"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scanner orchestrates a complete run: collect targets, reconcile with earlier runs, capture,
// persist and report.
type Scanner struct {
	config    *config.GlobalConfig
	logger    zerolog.Logger
	newEngine EngineFactory
	enricher  scheduler.Enricher
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithEngineFactory replaces the go-rod capture engine.
func WithEngineFactory(factory EngineFactory) Option {
	return func(s *Scanner) {
		s.newEngine = factory
	}
}

// WithEnricher replaces the enricher built from the enrichment config.
func WithEnricher(enricher scheduler.Enricher) Option {
	return func(s *Scanner) {
		s.enricher = enricher
	}
}

// NewScanner creates a Scanner. Without options it captures with go-rod and enriches with
// the stages enabled in the config.
func NewScanner(globalConfig *config.GlobalConfig, logger zerolog.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		config:    globalConfig,
		logger:    logger.With().Str("module", "Scanner").Logger(),
		newEngine: newRodEngine,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.enricher == nil && globalConfig.EnrichmentConfig.Enabled {
		s.enricher = enrichment.NewEnricher(globalConfig.EnrichmentConfig, globalConfig.CaptureConfig, logger)
	}
	return s
}

func newRodEngine(cfg *config.GlobalConfig, policy models.CapturePolicy, logger zerolog.Logger) CaptureEngine {
	limiter := capture.NewHostLimiter(cfg.CaptureConfig.HostRateLimitRPS, cfg.CaptureConfig.HostRateLimitBurst)
	return capture.NewRodEngine(capture.NewRodEngineConfig(cfg, policy), limiter, logger)
}

// Execute runs the full pipeline over inputs. Per-target failures end up in the result set;
// the returned error is reserved for runs that produced no result set at all (no inputs, no
// targets, interrupted collection, or an unavailable capture engine).
func (s *Scanner) Execute(ctx context.Context, inputs []sources.Source) (*RunSummary, error) {
	if len(inputs) == 0 {
		return nil, common.NewValidationError("inputs", nil, "at least one input source is required")
	}

	policy, err := config.BuildCapturePolicy(s.config)
	if err != nil {
		return nil, common.WrapError(err, "failed to build capture policy")
	}

	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	defer s.useRunLogger(summary.RunID)()
	log := s.logger.With().Str("run_id", summary.RunID).Logger()

	workSet, stats, err := sources.Collect(ctx, inputs, urlhandler.NewNormalizer(s.logger), policy, s.logger)
	summary.Collect = stats
	if err != nil {
		return nil, fmt.Errorf("%w: interrupted while collecting targets", common.ErrRunCancelled)
	}
	if len(workSet) == 0 {
		return nil, ErrNoTargets
	}
	summary.WorkSetSize = len(workSet)

	if err := common.NewFileManager(s.logger).EnsureDirectory(s.config.OutputDir, 0o755); err != nil {
		return nil, common.WrapError(err, "failed to create output directory")
	}

	// persistence must still happen after an interrupt
	persistCtx := context.WithoutCancel(ctx)

	history := s.openHistory()
	if history != nil {
		defer history.Close()
		if err := history.RecordRunStart(persistCtx, summary.RunID, len(workSet), summary.StartedAt); err != nil {
			log.Warn().Err(err).Msg("Failed to record run start")
		}
	}

	agg := aggregator.NewAggregator(summary.RunID, summary.StartedAt, s.logger)
	remaining := workSet
	if s.config.SchedulerConfig.Resume {
		remaining, summary.Resumed = s.resume(persistCtx, workSet, history, agg)
	}

	if err := s.runCapture(ctx, remaining, policy, agg); err != nil {
		if errors.Is(err, common.ErrCaptureEngineUnavailable) {
			log.Error().Err(err).Msg("Capture engine could not be started")
			s.recordFailedRun(persistCtx, history, summary.RunID)
			return nil, err
		}
		summary.Errors = append(summary.Errors, err)
	}

	rs, err := agg.Finalize()
	if err != nil {
		return nil, common.WrapError(err, "failed to finalize result set")
	}
	summary.FinishedAt = rs.FinishedAt
	summary.Summary = rs.Summary
	summary.Status = StatusCompleted
	if ctx.Err() != nil {
		summary.Status = StatusCancelled
	}

	s.persist(persistCtx, rs, summary)
	s.generateReports(rs, summary)
	s.recordHistory(persistCtx, history, rs, summary)

	if len(summary.Errors) > 0 && summary.Status == StatusCompleted {
		summary.Status = StatusPartial
	}
	s.logSummary(summary, rs)
	return summary, nil
}

// useRunLogger sends the run's log lines to a log file of its own when file logging is
// configured. The returned func restores the process logger.
func (s *Scanner) useRunLogger(runID string) func() {
	if s.config.LogConfig.LogFile == "" {
		return func() {}
	}

	runLogger, err := logger.NewWithRunID(s.config.LogConfig, runID)
	if err != nil {
		s.logger.Warn().Err(err).Str("run_id", runID).Msg("Per-run log file unavailable, keeping the process logger")
		return func() {}
	}

	previous := s.logger
	s.logger = runLogger.With().Str("module", "Scanner").Logger()
	return func() {
		s.logger = previous
	}
}

// runCapture drives the scheduler over targets with the aggregator as sink.
func (s *Scanner) runCapture(ctx context.Context, targets []models.CanonicalTarget, policy models.CapturePolicy, sink scheduler.ResultSink) error {
	if len(targets) == 0 {
		s.logger.Info().Msg("Nothing left to capture")
		return nil
	}

	if ctx.Err() != nil {
		return skipAll(targets, sink)
	}

	engine := s.newEngine(s.config, policy, s.logger)
	if err := engine.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return skipAll(targets, sink)
		}
		if !errors.Is(err, common.ErrCaptureEngineUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrCaptureEngineUnavailable, err)
		}
		return err
	}
	defer engine.Stop()

	limiter := rslimiter.NewResourceLimiter(s.config.ResourceLimiterConfig, s.logger)
	limiter.Start()
	defer limiter.Stop()

	interval := time.Duration(s.config.SchedulerConfig.ProgressIntervalSecs) * time.Second
	tracker := progress.NewProgress()
	display := progress.NewProgressDisplayManager(tracker, progress.ProgressDisplayConfig{
		DisplayInterval:   interval,
		EnableProgress:    interval > 0,
		ShowETAEstimation: true,
	}, s.logger)
	tracker.Start(len(targets))
	display.Start()

	sched := scheduler.NewScheduler(scheduler.Options{
		Classifier:        scheduler.NewRetryClassifier(policy.VerifySSL, s.config.SchedulerConfig.TransientErrorPatterns),
		Enricher:          s.enricher,
		EnrichmentTimeout: time.Duration(s.config.SchedulerConfig.EnrichmentTimeoutSecs) * time.Second,
		Gate:              limiter,
		OnStateChange:     display.Observe,
	}, s.logger)

	err := sched.Run(ctx, targets, policy, engine, sink)

	tracker.Finish(ctx.Err() != nil)
	display.Stop()
	return err
}

// skipAll records every target as skipped when the run is interrupted before capture starts.
func skipAll(targets []models.CanonicalTarget, sink scheduler.ResultSink) error {
	var errs []error
	for _, target := range targets {
		result := models.NewTargetResult(target, models.StatusSkipped)
		result.Cause = common.ErrRunCancelled.Error()
		if err := sink.Append(result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scanner) openHistory() *scheduler.HistoryStore {
	if s.config.StorageConfig.HistoryDBPath == "" {
		return nil
	}
	store, err := scheduler.NewHistoryStore(s.config.HistoryDBPath(), s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Run history unavailable, continuing without it")
		return nil
	}
	return store
}

func (s *Scanner) recordFailedRun(ctx context.Context, history *scheduler.HistoryStore, runID string) {
	if history == nil {
		return
	}
	if err := history.RecordRunFinish(ctx, runID, scheduler.RunStatusFailed, models.ResultSummary{}, time.Now(), ""); err != nil {
		s.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to record failed run")
	}
}

func (s *Scanner) recordHistory(ctx context.Context, history *scheduler.HistoryStore, rs *models.ResultSet, summary *RunSummary) {
	if history == nil {
		return
	}

	if _, err := history.RecordCaptured(ctx, rs.RunID, rs.Results); err != nil {
		summary.Errors = append(summary.Errors, err)
	}

	status := scheduler.RunStatusCompleted
	if summary.Cancelled() {
		status = scheduler.RunStatusCancelled
	}
	reportPath := ""
	if summary.HasReports() {
		reportPath = summary.ReportPaths[0]
	}
	if err := history.RecordRunFinish(ctx, rs.RunID, status, rs.Summary, rs.FinishedAt, reportPath); err != nil {
		summary.Errors = append(summary.Errors, err)
	}
}
