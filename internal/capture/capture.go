package capture

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/urlhandler"
)

const artifactTimeFormat = "20060102_150405"

// Capturer visits one target at one viewport. Every expected failure is reported as a
// *models.CaptureError; implementations must honour ctx and the timeout.
//
// The scheduler frees a worker slot as soon as an attempt times out and abandons the call.
// A Capturer that ignores ctx keeps running after that, so the number of live Capture calls
// is then no longer bounded by the worker count.
type Capturer interface {
	Capture(ctx context.Context, target models.CanonicalTarget, viewport models.Viewport, timeout time.Duration) (*models.CaptureSuccess, error)
}

// MultiViewportCapturer captures a target at every configured viewport. The first viewport's
// metadata is authoritative; artifacts are keyed by viewport name.
type MultiViewportCapturer struct {
	capturer  Capturer
	viewports []models.Viewport
}

// NewMultiViewportCapturer creates a MultiViewportCapturer. With no viewports the desktop
// default is used.
func NewMultiViewportCapturer(capturer Capturer, viewports []models.Viewport) *MultiViewportCapturer {
	if len(viewports) == 0 {
		viewports = []models.Viewport{models.DesktopViewport}
	}
	return &MultiViewportCapturer{capturer: capturer, viewports: viewports}
}

// CaptureTarget runs one attempt. A failure at any viewport fails the attempt.
func (m *MultiViewportCapturer) CaptureTarget(ctx context.Context, target models.CanonicalTarget, timeout time.Duration) (*models.CaptureSuccess, error) {
	var combined *models.CaptureSuccess

	for _, vp := range m.viewports {
		if err := ctx.Err(); err != nil {
			return nil, ClassifyError(err)
		}

		result, err := m.capturer.Capture(ctx, target, vp, timeout)
		if err != nil {
			return nil, ClassifyError(err)
		}
		if result == nil {
			return nil, models.NewCaptureError(models.CaptureErrOther, "capture at viewport %s returned no result", vp.Name)
		}

		if combined == nil {
			first := *result
			first.Artifacts = make(map[string]string, len(m.viewports))
			maps.Copy(first.Artifacts, result.Artifacts)
			combined = &first
		} else {
			combined.TimingMs += result.TimingMs
		}
		if result.ArtifactRef != "" {
			combined.Artifacts[vp.Name] = result.ArtifactRef
		}
	}

	return combined, nil
}

// ArtifactPath lays out screenshots as <dir>/<host_port>/<viewport>/<path>_<timestamp>.png.
func ArtifactPath(dir string, target models.CanonicalTarget, viewport string, at time.Time) string {
	name := fmt.Sprintf("%s_%s.png", urlhandler.SanitizePathComponent(target.Path), at.Format(artifactTimeFormat))
	return filepath.Join(dir,
		urlhandler.SanitizeHostnamePort(target.HostPort()),
		urlhandler.SanitizeFilename(viewport),
		name,
	)
}
