package enrichment

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/pendoc/internal/models"
)

// Evidence is everything a fingerprinter may look at for one target.
type Evidence struct {
	URL string
	// Headers are keyed by lower-case name.
	Headers map[string]string
	Body    string
	// ProbedPaths are signature paths that answered with 2xx/3xx.
	ProbedPaths []string
}

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+)+`)

// SignatureFingerprinter scores the signature table against captured evidence.
type SignatureFingerprinter struct {
	signatures []Signature
}

// NewSignatureFingerprinter creates a fingerprinter. Nil signatures use DefaultSignatures.
func NewSignatureFingerprinter(signatures []Signature) *SignatureFingerprinter {
	if signatures == nil {
		signatures = DefaultSignatures
	}
	return &SignatureFingerprinter{signatures: signatures}
}

// Fingerprint returns every signature scoring at least ConfidenceThreshold, in table order.
func (f *SignatureFingerprinter) Fingerprint(ev Evidence) []models.Technology {
	urlLower := strings.ToLower(ev.URL)
	bodyLower := strings.ToLower(ev.Body)
	generator := strings.ToLower(MetaGenerator(ev.Body))

	probed := make([]string, 0, len(ev.ProbedPaths))
	for _, p := range ev.ProbedPaths {
		probed = append(probed, strings.ToLower(p))
	}

	var detected []models.Technology
	for _, sig := range f.signatures {
		confidence := 0
		nameLower := strings.ToLower(sig.Name)

		for _, p := range sig.Paths {
			pl := strings.ToLower(p)
			if strings.Contains(urlLower, pl) || containsString(probed, pl) {
				confidence += PathWeight
			}
		}

		for header, want := range sig.Headers {
			got, ok := ev.Headers[strings.ToLower(header)]
			if !ok {
				continue
			}
			if want == "*" || strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
				confidence += HeaderWeight
			}
		}

		// <meta name="generator"> is as strong as a header
		if generator != "" && strings.Contains(generator, nameLower) {
			confidence += HeaderWeight
		}

		if bodyLower != "" {
			for _, pattern := range sig.BodyPatterns {
				if strings.Contains(bodyLower, strings.ToLower(pattern)) {
					confidence += BodyWeight
				}
			}
		}

		if confidence < ConfidenceThreshold {
			continue
		}

		tech := models.Technology{
			Name:       sig.Name,
			Category:   sig.Category,
			Confidence: min(confidence, MaxConfidence),
			Source:     "signature",
		}
		if generator != "" && strings.Contains(generator, nameLower) {
			tech.Version = versionPattern.FindString(generator)
		}
		detected = append(detected, tech)
	}
	return detected
}

// MetaGenerator returns the content of <meta name="generator">, if any.
func MetaGenerator(body string) string {
	if body == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}

	var generator string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), "generator") {
			generator = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return generator
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
