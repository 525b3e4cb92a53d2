package scheduler

import (
	"context"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
)

// ResultSink receives exactly one terminal result per target.
type ResultSink interface {
	Append(result models.TargetResult) error
}

// Enricher derives metadata from a successful capture. Errors degrade the bundle and never
// fail the target.
type Enricher interface {
	Enrich(ctx context.Context, target models.CanonicalTarget, success *models.CaptureSuccess) (*models.EnrichmentBundle, error)
}

// AdmissionGate may delay the start of an attempt. A non-nil error means the attempt was not
// started.
type AdmissionGate interface {
	Admit(ctx context.Context) error
}

// TargetState is the lifecycle position of one target within a run.
type TargetState string

const (
	StatePending        TargetState = "pending"
	StateInFlight       TargetState = "in_flight"
	StateRetryScheduled TargetState = "retry_scheduled"
	StateSucceeded      TargetState = "succeeded"
	StateFailed         TargetState = "failed"
	StateSkipped        TargetState = "skipped"
)

// Terminal reports whether no further transition can happen.
func (s TargetState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// StateChange is published on every transition. Result is set for terminal states.
type StateChange struct {
	Key     string
	State   TargetState
	Attempt int
	Result  *models.TargetResult
}

// Options configures optional collaborators of a Scheduler.
type Options struct {
	Classifier        *RetryClassifier
	Enricher          Enricher
	EnrichmentTimeout time.Duration
	Gate              AdmissionGate
	// OnStateChange is called from the decision loop; it must not block.
	OnStateChange func(StateChange)
}
