package httpxrunner

// Config holds the configuration for the httpx runner
type Config struct {
	CustomHeaders   map[string]string
	FollowRedirects bool
	Method          string
	Retries         int
	TechDetect      bool
	TLSGrab         bool
	Timeout         int // In seconds
	Verbose         bool
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		CustomHeaders:   make(map[string]string),
		FollowRedirects: true,
		Method:          "GET",
		Retries:         0,
		TechDetect:      true,
		TLSGrab:         true,
		Timeout:         10,
	}
}
