package httpxrunner

import (
	"context"
	"fmt"
	"sync"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/httpx/common/customheader"
	"github.com/projectdiscovery/httpx/runner"
	"github.com/rs/zerolog"
)

// Runner probes single targets with the httpx engine.
type Runner struct {
	config *Config
	mapper *ProbeResultMapper
	logger zerolog.Logger
}

// NewRunner creates a Runner. A nil config uses DefaultConfig.
func NewRunner(config *Config, logger zerolog.Logger) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Runner{
		config: config,
		mapper: NewProbeResultMapper(logger),
		logger: logger.With().Str("component", "HttpxRunner").Logger(),
	}
}

// Probe runs one httpx request against target. A probe that completed but reported an error
// returns both the partial result and a *common.NetworkError.
func (r *Runner) Probe(ctx context.Context, target string) (*ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var (
		mu     sync.Mutex
		result *ProbeResult
	)
	options := r.buildOptions(target, func(res runner.Result) {
		mapped := r.mapper.MapResult(res)
		mu.Lock()
		if result == nil {
			result = mapped
		}
		mu.Unlock()
	})

	if err := options.ValidateOptions(); err != nil {
		return nil, common.WrapError(err, "invalid httpx options")
	}

	httpxRunner, err := runner.New(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create httpx runner: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer httpxRunner.Close()
		httpxRunner.RunEnumeration()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// the enumeration is bounded by the httpx timeout and finishes on its own
		return nil, fmt.Errorf("httpx probe of %s: %w", target, ctx.Err())
	}

	mu.Lock()
	defer mu.Unlock()

	if result == nil {
		return nil, common.NewNetworkError(target, "httpx returned no result", common.ErrNetworkFailure)
	}
	if !result.IsSuccess() {
		return result, common.NewNetworkError(target, result.Error, common.ErrNetworkFailure)
	}

	r.logger.Debug().
		Str("url", target).
		Int("status", result.StatusCode).
		Bool("tls", result.HasTLS()).
		Msg("httpx probe finished")
	return result, nil
}

// buildOptions converts Config into the httpx runner options for one target.
func (r *Runner) buildOptions(target string, onResult func(runner.Result)) *runner.Options {
	return &runner.Options{
		Methods:         r.config.Method,
		Silent:          true,
		Verbose:         r.config.Verbose,
		NoColor:         true,
		Timeout:         r.config.Timeout,
		Retries:         r.config.Retries,
		FollowRedirects: r.config.FollowRedirects,

		InputTargetHost: goflags.StringSlice{target},
		Threads:         1,
		OnResult:        onResult,

		ExtractTitle:            true,
		StatusCode:              true,
		OutputServerHeader:      true,
		OutputContentType:       true,
		ResponseHeadersInStdout: true,
		OmitBody:                true,
		TechDetect:              r.config.TechDetect,
		TLSGrab:                 r.config.TLSGrab,
		HostMaxErrors:           -1,
		CustomHeaders:           r.customHeaders(),
	}
}

func (r *Runner) customHeaders() customheader.CustomHeaders {
	headers := customheader.CustomHeaders{}
	for name, value := range r.config.CustomHeaders {
		if err := headers.Set(name + ": " + value); err != nil {
			r.logger.Warn().Err(err).Str("header", name).Msg("Could not set custom header")
		}
	}
	return headers
}
