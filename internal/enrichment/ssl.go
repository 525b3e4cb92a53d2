package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aleister1102/pendoc/internal/httpxrunner"
	"github.com/aleister1102/pendoc/internal/models"
)

// Prober is satisfied by *httpxrunner.Runner.
type Prober interface {
	Probe(ctx context.Context, target string) (*httpxrunner.ProbeResult, error)
}

// SSLInspector grabs the certificate of https targets.
type SSLInspector struct {
	prober Prober
	now    func() time.Time
}

// NewSSLInspector creates an SSLInspector backed by prober.
func NewSSLInspector(prober Prober) *SSLInspector {
	return &SSLInspector{prober: prober, now: time.Now}
}

// Inspect returns nil for non-https targets.
func (s *SSLInspector) Inspect(ctx context.Context, target models.CanonicalTarget) (*models.SSLSummary, error) {
	if target.Scheme != "https" {
		return nil, nil
	}

	result, err := s.prober.Probe(ctx, target.URL())
	if result == nil || result.TLS == nil {
		if err == nil {
			err = fmt.Errorf("no certificate data for %s", target.URL())
		}
		return nil, err
	}

	tlsInfo := result.TLS
	issuer := tlsInfo.IssuerCN
	if issuer == "" && len(tlsInfo.IssuerOrg) > 0 {
		issuer = strings.Join(tlsInfo.IssuerOrg, ", ")
	}

	summary := &models.SSLSummary{
		SubjectCN: tlsInfo.SubjectCN,
		Issuer:    issuer,
		NotBefore: tlsInfo.NotBefore,
		NotAfter:  tlsInfo.NotAfter,
		Expired:   tlsInfo.Expired,
		SANs:      tlsInfo.SANs,
	}
	if !summary.NotAfter.IsZero() && summary.NotAfter.Before(s.now()) {
		summary.Expired = true
	}
	return summary, nil
}
