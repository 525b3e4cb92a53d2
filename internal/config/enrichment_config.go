package config

// EnrichmentConfig toggles the enrichment stages run after a successful capture
type EnrichmentConfig struct {
	Enabled              bool `json:"enabled" yaml:"enabled"`
	HeaderDetection      bool `json:"header_detection" yaml:"header_detection"`
	Signatures           bool `json:"signatures" yaml:"signatures"`
	Wappalyzer           bool `json:"wappalyzer" yaml:"wappalyzer"`
	SSLInspection        bool `json:"ssl_inspection" yaml:"ssl_inspection"`
	PathProbing          bool `json:"path_probing" yaml:"path_probing"`
	PathProbeTimeoutSecs int  `json:"path_probe_timeout_secs,omitempty" yaml:"path_probe_timeout_secs,omitempty" validate:"omitempty,min=1"`
	PathProbeMaxPaths    int  `json:"path_probe_max_paths,omitempty" yaml:"path_probe_max_paths,omitempty" validate:"omitempty,min=1"`
	HTTPXTimeoutSecs     int  `json:"httpx_timeout_secs,omitempty" yaml:"httpx_timeout_secs,omitempty" validate:"omitempty,min=1"`
	// InterestingHeaders overrides the default list of headers copied into results.
	InterestingHeaders []string `json:"interesting_headers,omitempty" yaml:"interesting_headers,omitempty"`
}

// NewDefaultEnrichmentConfig creates default enrichment configuration
func NewDefaultEnrichmentConfig() EnrichmentConfig {
	return EnrichmentConfig{
		Enabled:              true,
		HeaderDetection:      true,
		Signatures:           true,
		Wappalyzer:           true,
		SSLInspection:        true,
		PathProbing:          false,
		PathProbeTimeoutSecs: DefaultPathProbeTimeoutSecs,
		PathProbeMaxPaths:    DefaultPathProbeMaxPaths,
		HTTPXTimeoutSecs:     DefaultHTTPXTimeoutSecs,
	}
}
