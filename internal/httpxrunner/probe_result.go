package httpxrunner

import "time"

// ProbeResult is what one httpx probe learned about a target.
type ProbeResult struct {
	InputURL     string            `json:"input_url"`
	FinalURL     string            `json:"final_url,omitempty"`
	Method       string            `json:"method"`
	StatusCode   int               `json:"status_code,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	Title        string            `json:"title,omitempty"`
	WebServer    string            `json:"webserver,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Technologies []string          `json:"technologies,omitempty"`
	TLS          *TLSInfo          `json:"tls,omitempty"`
	Duration     float64           `json:"duration,omitempty"` // in seconds
	Timestamp    time.Time         `json:"timestamp"`
	Error        string            `json:"error,omitempty"`
}

// TLSInfo holds the leaf certificate details grabbed during the handshake.
type TLSInfo struct {
	Version   string    `json:"version,omitempty"`
	Cipher    string    `json:"cipher,omitempty"`
	SubjectCN string    `json:"subject_cn,omitempty"`
	SANs      []string  `json:"sans,omitempty"`
	IssuerCN  string    `json:"issuer_cn,omitempty"`
	IssuerOrg []string  `json:"issuer_org,omitempty"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	Expired   bool      `json:"expired"`
}

// IsSuccess returns true if httpx reported no error.
func (r *ProbeResult) IsSuccess() bool {
	return r != nil && r.Error == ""
}

// HasTLS returns true if certificate details are available.
func (r *ProbeResult) HasTLS() bool {
	return r != nil && r.TLS != nil
}
