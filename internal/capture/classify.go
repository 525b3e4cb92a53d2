package capture

import (
	"context"
	"errors"
	"strings"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
)

var (
	timeoutMarkers = []string{
		"ERR_TIMED_OUT",
		"ERR_CONNECTION_TIMED_OUT",
		"i/o timeout",
		"context deadline",
	}
	connectionMarkers = []string{
		"ERR_CONNECTION_REFUSED",
		"ERR_CONNECTION_RESET",
		"ERR_CONNECTION_CLOSED",
		"ERR_CONNECTION_FAILED",
		"ERR_ADDRESS_UNREACHABLE",
		"ERR_NAME_NOT_RESOLVED",
		"ERR_INTERNET_DISCONNECTED",
		"connection refused",
		"connection reset",
		"no such host",
	}
	tlsMarkers = []string{
		"ERR_CERT_",
		"ERR_SSL_",
		"ERR_BAD_SSL_CLIENT_AUTH_CERT",
		"x509:",
		"tls:",
	}
	unresolvableMarkers = []string{
		"ERR_NAME_NOT_RESOLVED",
		"no such host",
	}
)

// ClassifyError maps an engine error onto a CaptureError kind.
func ClassifyError(err error) *models.CaptureError {
	if err == nil {
		return nil
	}

	var captureErr *models.CaptureError
	if errors.As(err, &captureErr) {
		return captureErr
	}

	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, common.ErrTimeout), containsAny(msg, timeoutMarkers):
		return &models.CaptureError{Kind: models.CaptureErrTimeout, Message: msg}
	case containsAny(msg, tlsMarkers):
		return &models.CaptureError{Kind: models.CaptureErrTLS, Message: msg}
	case containsAny(msg, connectionMarkers):
		return &models.CaptureError{Kind: models.CaptureErrConnectionRefused, Message: msg}
	default:
		return &models.CaptureError{Kind: models.CaptureErrOther, Message: msg}
	}
}

// IsUnresolvableHost reports whether a failure message says DNS resolution failed.
func IsUnresolvableHost(msg string) bool {
	return containsAny(msg, unresolvableMarkers)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
