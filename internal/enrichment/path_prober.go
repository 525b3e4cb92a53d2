package enrichment

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"maps"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultProbeTimeout     = 5 * time.Second
	defaultProbeParallelism = 4
	probeMaxBodySize        = 64 * 1024
)

// PathProberConfig controls the path probing collector.
type PathProberConfig struct {
	UserAgent   string
	Timeout     time.Duration
	Parallelism int
	VerifySSL   bool
}

// PathProber requests known signature paths of a target and reports which ones exist.
type PathProber struct {
	cfg       PathProberConfig
	transport http.RoundTripper
	logger    zerolog.Logger
}

// NewPathProber creates a PathProber.
func NewPathProber(cfg PathProberConfig, logger zerolog.Logger) *PathProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProbeTimeout
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultProbeParallelism
	}
	return &PathProber{
		cfg: cfg,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: !cfg.VerifySSL},
			TLSHandshakeTimeout: cfg.Timeout,
			MaxIdleConnsPerHost: cfg.Parallelism,
			IdleConnTimeout:     30 * time.Second,
		},
		logger: logger.With().Str("component", "PathProber").Logger(),
	}
}

// Probe requests every path relative to baseURL and returns the paths that answered 2xx/3xx,
// sorted. A host that answers a random canary path the same way is treated as a catch-all and
// yields no hits.
func (p *PathProber) Probe(ctx context.Context, baseURL string, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid probe base url %q: %w", baseURL, err)
	}

	canary := "/" + uuid.NewString()
	statuses, err := p.visitAll(ctx, base, append([]string{canary}, paths...))
	if err != nil {
		return nil, err
	}

	if code, ok := statuses[canary]; ok && isHit(code) {
		p.logger.Debug().Str("base", baseURL).Int("canary_status", code).Msg("Catch-all host, ignoring path probes")
		return nil, nil
	}

	var hits []string
	for _, path := range paths {
		if code, ok := statuses[path]; ok && isHit(code) {
			hits = append(hits, path)
		}
	}
	sort.Strings(hits)
	return hits, nil
}

func (p *PathProber) visitAll(ctx context.Context, base *url.URL, paths []string) (map[string]int, error) {
	c := colly.NewCollector(
		colly.Async(true),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(probeMaxBodySize),
	)
	c.Context = ctx
	c.ParseHTTPErrorResponse = true
	c.IgnoreRobotsTxt = true
	c.WithTransport(p.transport)
	c.SetRequestTimeout(p.cfg.Timeout)
	if p.cfg.UserAgent != "" {
		c.UserAgent = p.cfg.UserAgent
	}
	c.SetRedirectHandler(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: p.cfg.Parallelism}); err != nil {
		return nil, fmt.Errorf("failed to set probe limit: %w", err)
	}

	var mu sync.Mutex
	statuses := make(map[string]int, len(paths))
	record := func(r *colly.Response) {
		if r == nil || r.Request == nil {
			return
		}
		path := r.Request.Ctx.Get("path")
		mu.Lock()
		statuses[path] = r.StatusCode
		mu.Unlock()
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(record)
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			record(r)
			return
		}
		p.logger.Debug().Err(err).Msg("Path probe failed")
	})

	for _, path := range paths {
		u := base.ResolveReference(&url.URL{Path: path})
		reqCtx := colly.NewContext()
		reqCtx.Put("path", path)
		if err := c.Request(http.MethodGet, u.String(), nil, reqCtx, nil); err != nil && !errors.As(err, new(*colly.AlreadyVisitedError)) {
			p.logger.Debug().Err(err).Str("url", u.String()).Msg("Could not queue path probe")
		}
	}

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("path probing cancelled: %w", ctx.Err())
	}

	mu.Lock()
	defer mu.Unlock()
	return maps.Clone(statuses), nil
}

func isHit(code int) bool {
	return code >= 200 && code < 400
}
