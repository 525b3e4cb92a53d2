package enrichment

import (
	"strings"

	"github.com/aleister1102/pendoc/internal/models"
)

// DefaultInterestingHeaders are copied verbatim into the bundle when present.
var DefaultInterestingHeaders = []string{
	"server",
	"x-powered-by",
	"x-aspnet-version",
	"x-generator",
	"strict-transport-security",
	"content-security-policy",
	"x-frame-options",
	"x-content-type-options",
}

const headerConfidence = 80

type headerRule struct {
	header   string
	contains string
	name     string
	category string
}

var headerRules = []headerRule{
	{header: "server", contains: "nginx", name: "Nginx", category: "web_server"},
	{header: "server", contains: "apache", name: "Apache", category: "web_server"},
	{header: "server", contains: "iis", name: "IIS", category: "web_server"},
	{header: "server", contains: "litespeed", name: "LiteSpeed", category: "web_server"},
	{header: "server", contains: "cloudflare", name: "Cloudflare", category: "cdn"},
	{header: "x-powered-by", contains: "php", name: "PHP", category: "language"},
	{header: "x-powered-by", contains: "asp.net", name: "ASP.NET", category: "framework"},
	{header: "x-powered-by", contains: "express", name: "Express", category: "framework"},
	{header: "x-aspnet-version", name: "ASP.NET", category: "framework"},
}

var wafHeaders = []string{
	"x-sucuri-id",
	"x-sucuri-cache",
	"cf-ray",
	"x-cdn",
	"x-edge-location",
	"x-akamai-transformed",
}

// HeaderDetector recognizes servers, languages and WAF/CDN fronts from response headers.
type HeaderDetector struct{}

// Detect expects header names in lower case.
func (HeaderDetector) Detect(headers map[string]string) []models.Technology {
	var techs []models.Technology
	seen := make(map[string]struct{})
	add := func(name, category, version string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		techs = append(techs, models.Technology{
			Name:       name,
			Version:    version,
			Category:   category,
			Confidence: headerConfidence,
			Source:     "headers",
		})
	}

	for _, rule := range headerRules {
		value, ok := headers[rule.header]
		if !ok {
			continue
		}
		if rule.contains == "" || strings.Contains(strings.ToLower(value), rule.contains) {
			add(rule.name, rule.category, versionPattern.FindString(value))
		}
	}

	if framework := strings.TrimSpace(headers["x-framework"]); framework != "" {
		add(framework, "framework", "")
	}

	for _, h := range wafHeaders {
		if _, ok := headers[h]; ok {
			add("WAF/CDN", "waf", "")
			break
		}
	}
	return techs
}

// InterestingHeaders picks the named headers out of headers. Names are matched case-insensitively.
func InterestingHeaders(headers map[string]string, names []string) map[string]string {
	out := make(map[string]string)
	for _, name := range names {
		if v, ok := headers[strings.ToLower(name)]; ok {
			out[strings.ToLower(name)] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// LowerKeys returns a copy of headers with lower-cased names.
func LowerKeys(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[strings.ToLower(k)] = v
	}
	return out
}
