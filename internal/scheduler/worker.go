package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aleister1102/pendoc/internal/capture"
	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
)

type captured struct {
	success *models.CaptureSuccess
	err     error
}

// runAttempt performs one capture attempt. Captures run on attemptBase so cancelling the run
// never interrupts an attempt that has started; runCtx only gates admission.
func (s *Scheduler) runAttempt(runCtx, attemptBase context.Context, workerID int, j job, policy models.CapturePolicy, runner *capture.MultiViewportCapturer) attemptResult {
	res := attemptResult{index: j.index}

	if s.opts.Gate != nil {
		if err := s.opts.Gate.Admit(runCtx); err != nil {
			s.logger.Debug().Err(err).Str("target", j.target.URL()).Msg("Attempt not admitted")
			res.notStarted = true
			return res
		}
	}

	s.logger.Debug().
		Int("worker", workerID).
		Str("target", j.target.URL()).
		Int("attempt", j.attempt).
		Msg("Capturing target")

	outcome := models.AttemptOutcome{
		Key:     j.target.Key(),
		Attempt: j.attempt,
		Started: time.Now(),
	}

	c := s.captureWithDeadline(attemptBase, j.target, policy, runner)
	outcome.Finished = time.Now()

	switch {
	case c.err != nil:
		outcome.Failure, outcome.Transient = s.opts.Classifier.Classify(c.err)
		outcome.Cause = c.err.Error()
	case c.success == nil:
		outcome.Failure = models.FailureOther
		outcome.Cause = "capture returned no result"
	case c.success.FinalURL != "" && policy.Excluded(c.success.FinalURL):
		outcome.Failure = models.FailureExcluded
		outcome.Cause = fmt.Sprintf("%v: redirected to %s", common.ErrExcluded, c.success.FinalURL)
	default:
		outcome.Success = c.success
		res.enrichment = s.enrich(attemptBase, j.target, c.success)
		// the rendered body is only needed for enrichment
		c.success.Body = ""
	}

	res.outcome = outcome
	return res
}

// captureWithDeadline abandons a capture that outlives the attempt timeout; the abandoned
// goroutine finishes into a buffered channel nobody reads. The slot is reclaimed at once, so
// only a Capturer that honours ctx keeps live captures within the worker count.
func (s *Scheduler) captureWithDeadline(base context.Context, target models.CanonicalTarget, policy models.CapturePolicy, runner *capture.MultiViewportCapturer) captured {
	var (
		attemptCtx context.Context
		cancel     context.CancelFunc
	)
	if policy.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(base, policy.Timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(base)
	}
	defer cancel()

	done := make(chan captured, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- captured{err: models.NewCaptureError(models.CaptureErrOther, "capture panicked: %v", r)}
			}
		}()
		success, err := runner.CaptureTarget(attemptCtx, target, policy.Timeout)
		done <- captured{success: success, err: err}
	}()

	select {
	case c := <-done:
		return c
	case <-attemptCtx.Done():
		return captured{err: models.NewCaptureError(models.CaptureErrTimeout, "attempt exceeded %s", policy.Timeout)}
	}
}

func (s *Scheduler) enrich(base context.Context, target models.CanonicalTarget, success *models.CaptureSuccess) (bundle *models.EnrichmentBundle) {
	if s.opts.Enricher == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(base, s.opts.EnrichmentTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("target", target.URL()).Msg("Enrichment panicked")
			bundle = &models.EnrichmentBundle{Reason: fmt.Sprintf("enrichment panicked: %v", r)}
		}
	}()

	bundle, err := s.opts.Enricher.Enrich(ctx, target, success)
	if err != nil {
		s.logger.Warn().Err(err).Str("target", target.URL()).Msg("Enrichment degraded")
		if bundle == nil {
			bundle = &models.EnrichmentBundle{}
		}
		bundle.Reason = err.Error()
	}
	return bundle
}
