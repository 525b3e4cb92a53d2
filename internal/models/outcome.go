package models

import (
	"fmt"
	"time"
)

// CaptureErrorKind classifies an expected capture failure.
type CaptureErrorKind string

const (
	CaptureErrTimeout           CaptureErrorKind = "timeout"
	CaptureErrConnectionRefused CaptureErrorKind = "connection_refused"
	CaptureErrTLS               CaptureErrorKind = "tls_error"
	CaptureErrOther             CaptureErrorKind = "other"
)

// CaptureError is returned by a capture operation for every ordinary failure.
type CaptureError struct {
	Kind    CaptureErrorKind
	Message string
}

func (e *CaptureError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewCaptureError creates a classified capture error
func NewCaptureError(kind CaptureErrorKind, format string, args ...interface{}) *CaptureError {
	return &CaptureError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// CaptureSuccess is the payload of a successful capture.
type CaptureSuccess struct {
	ArtifactRef string            `json:"artifact_ref"`
	Artifacts   map[string]string `json:"artifacts,omitempty"`
	HTTPStatus  int               `json:"http_status"`
	Headers     map[string]string `json:"headers,omitempty"`
	PageTitle   string            `json:"page_title"`
	TimingMs    int64             `json:"timing_ms"`
	FinalURL    string            `json:"final_url,omitempty"`
	// Body is the rendered document, kept only in memory for enrichment.
	Body string `json:"-"`
}

// FailureKind is the scheduler-level classification of one attempt.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureTimeout      FailureKind = "timeout"
	FailureNetworkError FailureKind = "network_error"
	FailureExcluded     FailureKind = "excluded"
	FailureOther        FailureKind = "other"
)

// AttemptOutcome is the result of one capture invocation for one target.
type AttemptOutcome struct {
	Key       string
	Attempt   int
	Success   *CaptureSuccess
	Failure   FailureKind
	Transient bool
	Cause     string
	Started   time.Time
	Finished  time.Time
}

// Succeeded reports whether the attempt produced a capture.
func (o AttemptOutcome) Succeeded() bool {
	return o.Success != nil
}
