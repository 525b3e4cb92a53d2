package enrichment

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/aleister1102/pendoc/internal/models"
	wappalyzer "github.com/projectdiscovery/wappalyzergo"
)

const wappalyzerConfidence = 90

// WappalyzerDetector fingerprints technologies with the wappalyzer rule set.
type WappalyzerDetector struct {
	client *wappalyzer.Wappalyze
}

// NewWappalyzerDetector loads the embedded fingerprint database.
func NewWappalyzerDetector() (*WappalyzerDetector, error) {
	client, err := wappalyzer.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load wappalyzer fingerprints: %w", err)
	}
	return &WappalyzerDetector{client: client}, nil
}

// Detect returns technologies sorted by name.
func (w *WappalyzerDetector) Detect(headers map[string]string, body string) []models.Technology {
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}

	found := w.client.Fingerprint(h, []byte(body))
	techs := make([]models.Technology, 0, len(found))
	for raw := range found {
		name, version, _ := strings.Cut(raw, ":")
		techs = append(techs, models.Technology{
			Name:       name,
			Version:    version,
			Confidence: wappalyzerConfidence,
			Source:     "wappalyzer",
		})
	}
	sort.Slice(techs, func(i, j int) bool { return techs[i].Name < techs[j].Name })
	return techs
}
