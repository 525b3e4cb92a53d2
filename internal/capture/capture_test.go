package capture

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCapturer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (s *stubCapturer) Capture(_ context.Context, target models.CanonicalTarget, viewport models.Viewport, _ time.Duration) (*models.CaptureSuccess, error) {
	s.mu.Lock()
	s.calls = append(s.calls, viewport.Name)
	s.mu.Unlock()

	if err := s.fail[viewport.Name]; err != nil {
		return nil, err
	}
	ref := fmt.Sprintf("screenshots/%s/%s.png", target.Host, viewport.Name)
	return &models.CaptureSuccess{
		ArtifactRef: ref,
		Artifacts:   map[string]string{viewport.Name: ref},
		HTTPStatus:  200 + len(s.calls) - 1,
		PageTitle:   viewport.Name,
		TimingMs:    10,
	}, nil
}

var sampleTarget = models.CanonicalTarget{Scheme: "https", Host: "a.example", Port: 8443, Path: "/admin/login"}

func TestMultiViewportCapturer_MergesArtifacts(t *testing.T) {
	stub := &stubCapturer{}
	m := NewMultiViewportCapturer(stub, []models.Viewport{models.DesktopViewport, models.MobileViewport})

	result, err := m.CaptureTarget(context.Background(), sampleTarget, time.Second)
	require.NoError(t, err)

	assert.Equal(t, []string{"desktop", "mobile"}, stub.calls)
	assert.Equal(t, 200, result.HTTPStatus)
	assert.Equal(t, "desktop", result.PageTitle)
	assert.Equal(t, "screenshots/a.example/desktop.png", result.ArtifactRef)
	assert.Equal(t, map[string]string{
		"desktop": "screenshots/a.example/desktop.png",
		"mobile":  "screenshots/a.example/mobile.png",
	}, result.Artifacts)
	assert.Equal(t, int64(20), result.TimingMs)
}

func TestMultiViewportCapturer_FailureFailsAttempt(t *testing.T) {
	stub := &stubCapturer{fail: map[string]error{"mobile": errors.New("navigation failed: net::ERR_CONNECTION_RESET")}}
	m := NewMultiViewportCapturer(stub, []models.Viewport{models.DesktopViewport, models.MobileViewport})

	_, err := m.CaptureTarget(context.Background(), sampleTarget, time.Second)
	var captureErr *models.CaptureError
	require.True(t, errors.As(err, &captureErr))
	assert.Equal(t, models.CaptureErrConnectionRefused, captureErr.Kind)
}

func TestMultiViewportCapturer_DefaultsToDesktop(t *testing.T) {
	stub := &stubCapturer{}
	_, err := NewMultiViewportCapturer(stub, nil).CaptureTarget(context.Background(), sampleTarget, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"desktop"}, stub.calls)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.CaptureErrorKind
	}{
		{name: "deadline", err: fmt.Errorf("navigate: %w", context.DeadlineExceeded), want: models.CaptureErrTimeout},
		{name: "chrome timeout", err: errors.New("navigation failed: net::ERR_TIMED_OUT"), want: models.CaptureErrTimeout},
		{name: "refused", err: errors.New("navigation failed: net::ERR_CONNECTION_REFUSED"), want: models.CaptureErrConnectionRefused},
		{name: "dns", err: errors.New("navigation failed: net::ERR_NAME_NOT_RESOLVED"), want: models.CaptureErrConnectionRefused},
		{name: "cert", err: errors.New("navigation failed: net::ERR_CERT_AUTHORITY_INVALID"), want: models.CaptureErrTLS},
		{name: "ssl protocol", err: errors.New("navigation failed: net::ERR_SSL_PROTOCOL_ERROR"), want: models.CaptureErrTLS},
		{name: "unknown", err: errors.New("page crashed"), want: models.CaptureErrOther},
		{name: "already classified", err: models.NewCaptureError(models.CaptureErrTLS, "handshake"), want: models.CaptureErrTLS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
		})
	}

	assert.Nil(t, ClassifyError(nil))
}

func TestIsUnresolvableHost(t *testing.T) {
	assert.True(t, IsUnresolvableHost("connection_refused: navigation failed: net::ERR_NAME_NOT_RESOLVED"))
	assert.True(t, IsUnresolvableHost("dial tcp: lookup nope.example: no such host"))
	assert.False(t, IsUnresolvableHost("net::ERR_CONNECTION_REFUSED"))
}

func TestArtifactPath(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 30, 5, 0, time.UTC)

	got := ArtifactPath("out/screenshots", sampleTarget, "desktop", at)
	assert.Equal(t, filepath.Join("out/screenshots", "a.example_8443", "desktop", "admin_login_20240115_093005.png"), got)

	root := models.CanonicalTarget{Scheme: "http", Host: "10.0.0.1", Port: 80, Path: "/"}
	assert.Equal(t, filepath.Join("s", "10.0.0.1_80", "mobile", "index_20240115_093005.png"), ArtifactPath("s", root, "mobile", at))
}

func TestHostLimiter(t *testing.T) {
	var disabled *HostLimiter
	assert.Nil(t, NewHostLimiter(0, 1))
	assert.NoError(t, disabled.Wait(context.Background(), "a.example"))

	limiter := NewHostLimiter(1, 1)
	require.NotNil(t, limiter)
	require.NoError(t, limiter.Wait(context.Background(), "a.example"))
	require.NoError(t, limiter.Wait(context.Background(), "b.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx, "a.example")
	require.Error(t, err)
	assert.Equal(t, models.CaptureErrTimeout, ClassifyError(err).Kind)
}
