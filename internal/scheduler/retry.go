package scheduler

import (
	"strings"

	"github.com/aleister1102/pendoc/internal/capture"
	"github.com/aleister1102/pendoc/internal/models"
)

// RetryClassifier decides whether a failed attempt is worth retrying.
type RetryClassifier struct {
	verifySSL         bool
	transientPatterns []string
}

// NewRetryClassifier creates a classifier. Patterns are matched case-insensitively against
// the message of failures of kind other.
func NewRetryClassifier(verifySSL bool, transientPatterns []string) *RetryClassifier {
	patterns := make([]string, 0, len(transientPatterns))
	for _, p := range transientPatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, strings.ToLower(p))
		}
	}
	return &RetryClassifier{verifySSL: verifySSL, transientPatterns: patterns}
}

// Classify maps a capture error to a failure kind and a transient flag.
func (c *RetryClassifier) Classify(err error) (models.FailureKind, bool) {
	captureErr := capture.ClassifyError(err)
	if captureErr == nil {
		return models.FailureNone, false
	}

	msg := captureErr.Error()
	switch captureErr.Kind {
	case models.CaptureErrTimeout:
		return models.FailureTimeout, true
	case models.CaptureErrConnectionRefused:
		// DNS failures do not heal within a run
		return models.FailureNetworkError, !capture.IsUnresolvableHost(msg)
	case models.CaptureErrTLS:
		return models.FailureNetworkError, !c.verifySSL
	default:
		return models.FailureOther, c.matchesTransient(msg)
	}
}

func (c *RetryClassifier) matchesTransient(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range c.transientPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
