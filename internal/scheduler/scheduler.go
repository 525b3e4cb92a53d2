package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/pendoc/internal/capture"
	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultEnrichmentTimeout = 15 * time.Second

// Scheduler drives a work set through a fixed pool of capture workers with fixed-delay retry.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Classifier == nil {
		opts.Classifier = NewRetryClassifier(false, nil)
	}
	if opts.EnrichmentTimeout <= 0 {
		opts.EnrichmentTimeout = defaultEnrichmentTimeout
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "Scheduler").Logger(),
	}
}

type job struct {
	index   int
	target  models.CanonicalTarget
	attempt int
}

type attemptResult struct {
	index      int
	outcome    models.AttemptOutcome
	enrichment *models.EnrichmentBundle
	notStarted bool
}

type targetState struct {
	target     models.CanonicalTarget
	state      TargetState
	attempts   int
	firstStart time.Time
	last       models.AttemptOutcome
	retryTimer *time.Timer
}

// runState is owned by the decision loop; nothing else touches it.
type runState struct {
	targets    []*targetState
	pending    []int
	retryReady chan int
	remaining  int
	inFlight   int
	cancelled  bool
	sink       ResultSink
	sinkErrs   []error
	counts     map[models.TargetStatus]int
}

// Run processes every target of workSet and delivers exactly one TargetResult per target to
// sink. It returns once every target is terminal and every worker has exited. Cancelling ctx
// stops admission; in-flight attempts run to completion or timeout.
func (s *Scheduler) Run(ctx context.Context, workSet []models.CanonicalTarget, policy models.CapturePolicy, capturer capture.Capturer, sink ResultSink) error {
	if len(workSet) == 0 {
		s.logger.Info().Msg("Empty work set, nothing to capture")
		return nil
	}
	if capturer == nil || sink == nil {
		return common.NewValidationError("scheduler", "", "capturer and sink are required")
	}

	workers := policy.ConcurrentWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(workSet) {
		workers = len(workSet)
	}

	s.logger.Info().
		Int("targets", len(workSet)).
		Int("workers", workers).
		Int("max_attempts", policy.MaxAttempts()).
		Dur("timeout", policy.Timeout).
		Dur("retry_delay", policy.RetryDelay).
		Msg("Starting capture run")

	runner := capture.NewMultiViewportCapturer(capturer, policy.Viewports)
	jobs := make(chan job)
	results := make(chan attemptResult, workers)
	attemptBase := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			for j := range jobs {
				results <- s.runAttempt(ctx, attemptBase, workerID, j, policy, runner)
			}
			return nil
		})
	}

	rs := s.newRunState(workSet, sink)
	s.decide(ctx, rs, policy, jobs, results)

	close(jobs)
	if err := g.Wait(); err != nil {
		rs.sinkErrs = append(rs.sinkErrs, err)
	}

	s.logger.Info().
		Int("succeeded", rs.counts[models.StatusSucceeded]).
		Int("failed", rs.counts[models.StatusFailed]).
		Int("skipped", rs.counts[models.StatusSkipped]).
		Bool("cancelled", rs.cancelled).
		Msg("Capture run finished")

	return errors.Join(rs.sinkErrs...)
}

func (s *Scheduler) newRunState(workSet []models.CanonicalTarget, sink ResultSink) *runState {
	rs := &runState{
		targets:    make([]*targetState, len(workSet)),
		pending:    make([]int, 0, len(workSet)),
		retryReady: make(chan int, len(workSet)),
		remaining:  len(workSet),
		sink:       sink,
		counts:     make(map[models.TargetStatus]int, 3),
	}
	for i, t := range workSet {
		rs.targets[i] = &targetState{target: t, state: StatePending}
		rs.pending = append(rs.pending, i)
		s.notify(rs.targets[i], nil)
	}
	return rs
}

// decide is the single owner of per-target state.
func (s *Scheduler) decide(ctx context.Context, rs *runState, policy models.CapturePolicy, jobs chan<- job, results <-chan attemptResult) {
	done := ctx.Done()

	for rs.remaining > 0 {
		var dispatch chan<- job
		var next job
		if !rs.cancelled && ctx.Err() == nil && len(rs.pending) > 0 {
			idx := rs.pending[0]
			dispatch = jobs
			next = job{index: idx, target: rs.targets[idx].target, attempt: rs.targets[idx].attempts + 1}
		}

		select {
		case dispatch <- next:
			rs.pending = rs.pending[1:]
			ts := rs.targets[next.index]
			ts.attempts = next.attempt
			if ts.firstStart.IsZero() {
				ts.firstStart = time.Now()
			}
			rs.inFlight++
			ts.state = StateInFlight
			s.notify(ts, nil)

		case res := <-results:
			rs.inFlight--
			s.handleResult(ctx, rs, policy, res)

		case idx := <-rs.retryReady:
			ts := rs.targets[idx]
			if ts.state != StateRetryScheduled {
				continue
			}
			ts.retryTimer = nil
			ts.state = StatePending
			rs.pending = append(rs.pending, idx)
			s.notify(ts, nil)

		case <-done:
			done = nil
			s.cancel(rs)
		}
	}
}

func (s *Scheduler) cancel(rs *runState) {
	rs.cancelled = true
	s.logger.Warn().
		Int("pending", len(rs.pending)).
		Int("in_flight", rs.inFlight).
		Msg("Run cancelled, skipping targets not yet started")

	for _, idx := range rs.pending {
		s.skip(rs, idx)
	}
	rs.pending = nil

	for idx, ts := range rs.targets {
		if ts.state != StateRetryScheduled {
			continue
		}
		if ts.retryTimer != nil {
			ts.retryTimer.Stop()
			ts.retryTimer = nil
		}
		s.skip(rs, idx)
	}
}

func (s *Scheduler) handleResult(ctx context.Context, rs *runState, policy models.CapturePolicy, res attemptResult) {
	ts := rs.targets[res.index]
	cancelled := rs.cancelled || ctx.Err() != nil

	if res.notStarted {
		ts.attempts--
		if ts.attempts == 0 {
			ts.firstStart = time.Time{}
		}
		if cancelled {
			s.skip(rs, res.index)
			return
		}
		ts.state = StatePending
		rs.pending = append(rs.pending, res.index)
		s.notify(ts, nil)
		return
	}

	outcome := res.outcome
	ts.last = outcome

	if outcome.Succeeded() {
		result := s.newResult(ts, models.StatusSucceeded)
		result.Capture = outcome.Success
		result.Enrichment = res.enrichment
		s.finish(rs, res.index, result)
		return
	}

	log := s.logger.Debug().
		Str("target", ts.target.URL()).
		Int("attempt", outcome.Attempt).
		Str("failure", string(outcome.Failure)).
		Bool("transient", outcome.Transient).
		Str("cause", outcome.Cause)

	switch {
	case outcome.Transient && outcome.Attempt < policy.MaxAttempts() && cancelled:
		log.Msg("Transient failure after cancellation")
		s.skip(rs, res.index)
	case outcome.Transient && outcome.Attempt < policy.MaxAttempts():
		log.Dur("retry_in", policy.RetryDelay).Msg("Scheduling retry")
		s.scheduleRetry(rs, res.index, policy.RetryDelay)
	default:
		log.Msg("Attempt failed, no retry")
		result := s.newResult(ts, models.StatusFailed)
		result.Cause = outcome.Cause
		result.FailureKind = outcome.Failure
		s.finish(rs, res.index, result)
	}
}

func (s *Scheduler) scheduleRetry(rs *runState, idx int, delay time.Duration) {
	ts := rs.targets[idx]
	ts.state = StateRetryScheduled
	ready := rs.retryReady
	ts.retryTimer = time.AfterFunc(delay, func() {
		ready <- idx
	})
	s.notify(ts, nil)
}

func (s *Scheduler) skip(rs *runState, idx int) {
	ts := rs.targets[idx]
	result := s.newResult(ts, models.StatusSkipped)
	result.Cause = common.ErrRunCancelled.Error()
	if ts.last.Failure != models.FailureNone {
		result.FailureKind = ts.last.Failure
	}
	s.finish(rs, idx, result)
}

func (s *Scheduler) newResult(ts *targetState, status models.TargetStatus) models.TargetResult {
	result := models.NewTargetResult(ts.target, status)
	result.Attempts = ts.attempts
	if !ts.firstStart.IsZero() {
		result.Elapsed = time.Since(ts.firstStart)
	}
	return result
}

func (s *Scheduler) finish(rs *runState, idx int, result models.TargetResult) {
	ts := rs.targets[idx]
	ts.state = TargetState(result.Status)
	rs.remaining--
	rs.counts[result.Status]++

	if result.Status == models.StatusFailed {
		s.logger.Warn().
			Str("target", result.URL).
			Int("attempts", result.Attempts).
			Str("failure", string(result.FailureKind)).
			Str("cause", result.Cause).
			Msg("Target failed")
	}

	if err := rs.sink.Append(result); err != nil {
		s.logger.Error().Err(err).Str("target", result.URL).Msg("Result sink rejected result")
		rs.sinkErrs = append(rs.sinkErrs, fmt.Errorf("append result for %s: %w", result.Key, err))
	}
	s.notify(ts, &result)
}

func (s *Scheduler) notify(ts *targetState, result *models.TargetResult) {
	if s.opts.OnStateChange == nil {
		return
	}
	s.opts.OnStateChange(StateChange{
		Key:     ts.target.Key(),
		State:   ts.state,
		Attempt: ts.attempts,
		Result:  result,
	})
}
