package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aleister1102/pendoc/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRetryClassifier(t *testing.T) {
	patterns := []string{"ERR_EMPTY_RESPONSE", " ", "err_connection_closed"}

	tests := []struct {
		name          string
		verifySSL     bool
		err           error
		wantKind      models.FailureKind
		wantTransient bool
	}{
		{name: "timeout", err: models.NewCaptureError(models.CaptureErrTimeout, "slow"), wantKind: models.FailureTimeout, wantTransient: true},
		{name: "deadline", err: fmt.Errorf("wait load: %w", context.DeadlineExceeded), wantKind: models.FailureTimeout, wantTransient: true},
		{name: "refused", err: errors.New("net::ERR_CONNECTION_REFUSED"), wantKind: models.FailureNetworkError, wantTransient: true},
		{name: "unresolvable", err: errors.New("net::ERR_NAME_NOT_RESOLVED"), wantKind: models.FailureNetworkError, wantTransient: false},
		{name: "tls lenient", err: errors.New("net::ERR_CERT_DATE_INVALID"), wantKind: models.FailureNetworkError, wantTransient: true},
		{name: "tls verified", verifySSL: true, err: errors.New("net::ERR_CERT_DATE_INVALID"), wantKind: models.FailureNetworkError, wantTransient: false},
		{name: "other permanent", err: errors.New("page crashed"), wantKind: models.FailureOther, wantTransient: false},
		{name: "other matches pattern", err: errors.New("net::ERR_EMPTY_RESPONSE"), wantKind: models.FailureOther, wantTransient: true},
		{name: "pattern case insensitive", err: models.NewCaptureError(models.CaptureErrOther, "net::ERR_CONNECTION_CLOSED"), wantKind: models.FailureOther, wantTransient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRetryClassifier(tt.verifySSL, patterns)
			kind, transient := c.Classify(tt.err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantTransient, transient)
		})
	}

	kind, transient := NewRetryClassifier(false, nil).Classify(nil)
	assert.Equal(t, models.FailureNone, kind)
	assert.False(t, transient)
}
