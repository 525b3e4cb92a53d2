package httpxrunner

import (
	"strconv"
	"strings"
	"time"

	"github.com/projectdiscovery/httpx/runner"
	"github.com/rs/zerolog"
)

// ProbeResultMapper handles mapping from httpx results to ProbeResult
type ProbeResultMapper struct {
	logger zerolog.Logger
}

// NewProbeResultMapper creates a new probe result mapper
func NewProbeResultMapper(logger zerolog.Logger) *ProbeResultMapper {
	return &ProbeResultMapper{
		logger: logger.With().Str("component", "ProbeResultMapper").Logger(),
	}
}

// MapResult converts an httpx runner.Result to a ProbeResult
func (prm *ProbeResultMapper) MapResult(res runner.Result) *ProbeResult {
	probeResult := &ProbeResult{
		InputURL:    res.Input,
		FinalURL:    res.URL,
		Method:      res.Method,
		StatusCode:  res.StatusCode,
		ContentType: res.ContentType,
		Title:       res.Title,
		WebServer:   res.WebServer,
		Timestamp:   res.Timestamp,
		Error:       res.Error,
	}

	prm.mapDuration(probeResult, res)
	prm.mapHeaders(probeResult, res)
	prm.mapTechnologies(probeResult, res)
	prm.mapTLS(probeResult, res)

	return probeResult
}

// mapDuration maps response time to duration
func (prm *ProbeResultMapper) mapDuration(probeResult *ProbeResult, res runner.Result) {
	if res.ResponseTime == "" {
		return
	}

	if dur, err := time.ParseDuration(res.ResponseTime); err == nil {
		probeResult.Duration = dur.Seconds()
		return
	}

	durationStr := strings.TrimSuffix(res.ResponseTime, "s")
	if dur, err := strconv.ParseFloat(durationStr, 64); err == nil {
		probeResult.Duration = dur
	} else {
		prm.logger.Debug().
			Str("response_time", res.ResponseTime).
			Err(err).
			Msg("Failed to parse response time")
	}
}

// mapHeaders maps response headers, lower-casing names
func (prm *ProbeResultMapper) mapHeaders(probeResult *ProbeResult, res runner.Result) {
	if len(res.ResponseHeaders) == 0 {
		return
	}

	probeResult.Headers = make(map[string]string, len(res.ResponseHeaders))
	for k, v := range res.ResponseHeaders {
		// httpx normalizes names to snake case
		name := strings.ToLower(strings.ReplaceAll(k, "_", "-"))
		probeResult.Headers[name] = prm.convertHeaderValue(v, k)
	}
}

// convertHeaderValue converts header value from interface{} to string
func (prm *ProbeResultMapper) convertHeaderValue(v interface{}, headerKey string) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []interface{}:
		var strVals []string
		for _, iv := range val {
			if sv, ok := iv.(string); ok {
				strVals = append(strVals, sv)
			}
		}
		return strings.Join(strVals, ", ")
	default:
		prm.logger.Debug().
			Str("header_key", headerKey).
			Interface("value", v).
			Msg("Unknown header value type")
		return ""
	}
}

func (prm *ProbeResultMapper) mapTechnologies(probeResult *ProbeResult, res runner.Result) {
	if len(res.Technologies) == 0 {
		return
	}
	probeResult.Technologies = append([]string(nil), res.Technologies...)
}

func (prm *ProbeResultMapper) mapTLS(probeResult *ProbeResult, res runner.Result) {
	if res.TLSData == nil {
		return
	}

	info := &TLSInfo{
		Version: res.TLSData.Version,
		Cipher:  res.TLSData.Cipher,
	}
	if cert := res.TLSData.CertificateResponse; cert != nil {
		info.SubjectCN = cert.SubjectCN
		info.SANs = cert.SubjectAN
		info.IssuerCN = cert.IssuerCN
		info.IssuerOrg = cert.IssuerOrg
		info.NotBefore = cert.NotBefore
		info.NotAfter = cert.NotAfter
		info.Expired = cert.Expired
	}
	probeResult.TLS = info
}
