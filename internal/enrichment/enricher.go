package enrichment

import (
	"context"
	"strings"
	"time"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/httpxrunner"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
)

// Enricher runs the configured enrichment stages on a successful capture. Every stage is
// optional; a failing stage is recorded and the others still run.
type Enricher struct {
	headerDetection bool
	headers         HeaderDetector
	signatures      *SignatureFingerprinter
	wappalyzer      *WappalyzerDetector
	ssl             *SSLInspector
	prober          *PathProber
	probePaths      []string
	interesting     []string
	logger          zerolog.Logger
}

// NewEnricher builds the stages enabled in cfg. A wappalyzer database that fails to load
// disables that stage only.
func NewEnricher(cfg config.EnrichmentConfig, captureCfg config.CaptureConfig, logger zerolog.Logger) *Enricher {
	logger = logger.With().Str("component", "Enricher").Logger()

	e := &Enricher{
		headerDetection: cfg.HeaderDetection,
		interesting:     cfg.InterestingHeaders,
		logger:          logger,
	}
	if len(e.interesting) == 0 {
		e.interesting = DefaultInterestingHeaders
	}

	if cfg.Signatures {
		e.signatures = NewSignatureFingerprinter(nil)
	}

	if cfg.Wappalyzer {
		detector, err := NewWappalyzerDetector()
		if err != nil {
			logger.Warn().Err(err).Msg("Wappalyzer fingerprinting disabled")
		} else {
			e.wappalyzer = detector
		}
	}

	if cfg.SSLInspection {
		httpxCfg := httpxrunner.DefaultConfig()
		httpxCfg.TechDetect = false
		if cfg.HTTPXTimeoutSecs > 0 {
			httpxCfg.Timeout = cfg.HTTPXTimeoutSecs
		}
		if captureCfg.UserAgent != "" {
			httpxCfg.CustomHeaders["User-Agent"] = captureCfg.UserAgent
		}
		e.ssl = NewSSLInspector(httpxrunner.NewRunner(httpxCfg, logger))
	}

	if cfg.PathProbing {
		e.prober = NewPathProber(PathProberConfig{
			UserAgent: captureCfg.UserAgent,
			Timeout:   time.Duration(cfg.PathProbeTimeoutSecs) * time.Second,
			VerifySSL: captureCfg.VerifySSL,
		}, logger)
		e.probePaths = ProbePaths(DefaultSignatures, cfg.PathProbeMaxPaths)
	}

	return e
}

// Enrich implements the scheduler's Enricher contract. The bundle is always non-nil; the
// error lists the stages that degraded.
func (e *Enricher) Enrich(ctx context.Context, target models.CanonicalTarget, success *models.CaptureSuccess) (*models.EnrichmentBundle, error) {
	bundle := &models.EnrichmentBundle{}
	if success == nil {
		return bundle, nil
	}

	headers := LowerKeys(success.Headers)
	var (
		techs []models.Technology
		errs  []error
	)

	if e.headerDetection {
		techs = append(techs, e.headers.Detect(headers)...)
	}

	var probed []string
	if e.prober != nil {
		hits, err := e.prober.Probe(ctx, target.Scheme+"://"+target.Authority()+"/", e.probePaths)
		if err != nil {
			errs = append(errs, common.NewEnrichmentError("path_probe", err))
		}
		probed = hits
	}

	if e.signatures != nil {
		pageURL := success.FinalURL
		if pageURL == "" {
			pageURL = target.URL()
		}
		techs = append(techs, e.signatures.Fingerprint(Evidence{
			URL:         pageURL,
			Headers:     headers,
			Body:        success.Body,
			ProbedPaths: probed,
		})...)
	}

	if e.wappalyzer != nil {
		techs = append(techs, e.wappalyzer.Detect(headers, success.Body)...)
	}

	if e.ssl != nil {
		summary, err := e.ssl.Inspect(ctx, target)
		if err != nil {
			errs = append(errs, common.NewEnrichmentError("ssl", err))
		}
		bundle.SSL = summary
	}

	bundle.Technologies = MergeTechnologies(techs)
	bundle.InterestingHeaders = InterestingHeaders(headers, e.interesting)

	if len(errs) > 0 {
		e.logger.Debug().Str("target", target.URL()).Int("degraded_stages", len(errs)).Msg("Enrichment partially failed")
	}
	return bundle, common.CombineErrors(errs)
}

// MergeTechnologies deduplicates by case-insensitive name keeping first-seen order. The
// highest-confidence entry wins; missing version and category are filled from the others.
func MergeTechnologies(techs []models.Technology) []models.Technology {
	if len(techs) == 0 {
		return nil
	}

	index := make(map[string]int, len(techs))
	merged := make([]models.Technology, 0, len(techs))
	for _, t := range techs {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		key := strings.ToLower(t.Name)
		i, ok := index[key]
		if !ok {
			index[key] = len(merged)
			merged = append(merged, t)
			continue
		}

		cur := merged[i]
		if t.Confidence > cur.Confidence {
			t.Version = firstNonEmpty(t.Version, cur.Version)
			t.Category = firstNonEmpty(t.Category, cur.Category)
			merged[i] = t
			continue
		}
		cur.Version = firstNonEmpty(cur.Version, t.Version)
		cur.Category = firstNonEmpty(cur.Category, t.Category)
		merged[i] = cur
	}
	return merged
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
