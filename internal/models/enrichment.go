package models

import "time"

// Technology represents a detected technology
type Technology struct {
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	Category   string `json:"category,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	Source     string `json:"source,omitempty"`
}

// SSLSummary holds the certificate details of an https target
type SSLSummary struct {
	SubjectCN string    `json:"subject_cn,omitempty"`
	Issuer    string    `json:"issuer,omitempty"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	Expired   bool      `json:"expired"`
	SANs      []string  `json:"sans,omitempty"`
}

// DaysRemaining is negative once the certificate has expired.
func (s SSLSummary) DaysRemaining(now time.Time) int {
	return int(s.NotAfter.Sub(now).Hours() / 24)
}

// EnrichmentBundle is the optional metadata attached to a successful capture.
// Reason is set when one or more enrichment stages degraded.
type EnrichmentBundle struct {
	Technologies       []Technology      `json:"technologies,omitempty"`
	SSL                *SSLSummary       `json:"ssl,omitempty"`
	InterestingHeaders map[string]string `json:"interesting_headers,omitempty"`
	Reason             string            `json:"reason,omitempty"`
}

// TechnologyNames returns the detected technology names in detection order.
func (b *EnrichmentBundle) TechnologyNames() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.Technologies))
	for _, t := range b.Technologies {
		names = append(names, t.Name)
	}
	return names
}
