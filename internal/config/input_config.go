package config

// InputConfig defines the target list files and normalization defaults
type InputConfig struct {
	URLFile         string   `json:"url_file,omitempty" yaml:"url_file,omitempty" validate:"omitempty,fileexists"`
	BurpFile        string   `json:"burp_file,omitempty" yaml:"burp_file,omitempty" validate:"omitempty,fileexists"`
	SubdomainFile   string   `json:"subdomain_file,omitempty" yaml:"subdomain_file,omitempty" validate:"omitempty,fileexists"`
	SubdomainFormat string   `json:"subdomain_format,omitempty" yaml:"subdomain_format,omitempty" validate:"omitempty,oneof=auto simple csv json"`
	NmapFile        string   `json:"nmap_file,omitempty" yaml:"nmap_file,omitempty" validate:"omitempty,fileexists"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty" validate:"omitempty,regexlist"`
	DefaultProtocol string   `json:"default_protocol,omitempty" yaml:"default_protocol,omitempty" validate:"omitempty,protocol"`
	HTTPPorts       []int    `json:"http_ports,omitempty" yaml:"http_ports,omitempty" validate:"omitempty,dive,min=1,max=65535"`
	HTTPSPorts      []int    `json:"https_ports,omitempty" yaml:"https_ports,omitempty" validate:"omitempty,dive,min=1,max=65535"`
}

// NewDefaultInputConfig creates default input configuration
func NewDefaultInputConfig() InputConfig {
	return InputConfig{
		SubdomainFormat: DefaultSubdomainFormat,
		ExcludePatterns: []string{},
		DefaultProtocol: DefaultProtocol,
		HTTPPorts:       append([]int(nil), DefaultHTTPPorts...),
		HTTPSPorts:      append([]int(nil), DefaultHTTPSPorts...),
	}
}

// HasInputs reports whether at least one target list is configured.
func (c InputConfig) HasInputs() bool {
	return c.URLFile != "" || c.BurpFile != "" || c.SubdomainFile != "" || c.NmapFile != ""
}
