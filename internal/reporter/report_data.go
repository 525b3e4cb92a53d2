package reporter

import (
	"html/template"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
)

// ReportPageData is the template context of one report file.
type ReportPageData struct {
	ReportTitle  string
	GeneratedAt  string
	RunID        string
	PartInfo     string
	StartedAt    time.Time
	FinishedAt   time.Time
	Summary      models.ResultSummary
	StatusCodes  []HistogramEntry
	Technologies []HistogramEntry
	CMS          []HistogramEntry
	Results      []ResultView
	CustomCSS    template.CSS
}

// HistogramEntry is one bar of a summary histogram.
type HistogramEntry struct {
	Label string
	Count int
}

// ResultView is the display form of one TargetResult.
type ResultView struct {
	Key          string
	URL          string
	Status       string
	Attempts     int
	Elapsed      time.Duration
	Cause        string
	FailureKind  string
	Provenance   []string
	Resumed      bool
	Screenshots  []Screenshot
	HTTPStatus   int
	Title        string
	FinalURL     string
	Technologies []models.Technology
	SSL          *SSLView
	Headers      []HeaderPair
	Degraded     string
}

// Screenshot is a viewport capture, referenced relative to the report file.
type Screenshot struct {
	Viewport string
	Path     string
}

// SSLView adds the remaining validity to an SSLSummary.
type SSLView struct {
	models.SSLSummary
	DaysRemaining int
}

// HeaderPair is a name/value pair in display order.
type HeaderPair struct {
	Name  string
	Value string
}

func histogram(counts map[string]int) []HistogramEntry {
	entries := make([]HistogramEntry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, HistogramEntry{Label: label, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	return entries
}

func statusHistogram(codes map[int]int) []HistogramEntry {
	entries := make([]HistogramEntry, 0, len(codes))
	for code, count := range codes {
		entries = append(entries, HistogramEntry{Label: strconv.Itoa(code), Count: count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })
	return entries
}

// newResultView converts r; artifact paths are made relative to reportDir.
func newResultView(r models.TargetResult, reportDir string, now time.Time) ResultView {
	view := ResultView{
		Key:         r.Key,
		URL:         r.URL,
		Status:      string(r.Status),
		Attempts:    r.Attempts,
		Elapsed:     r.Elapsed,
		Cause:       r.Cause,
		FailureKind: string(r.FailureKind),
		Resumed:     r.Resumed,
	}
	for _, p := range r.Target.Provenance {
		view.Provenance = append(view.Provenance, string(p))
	}

	if c := r.Capture; c != nil {
		view.HTTPStatus = c.HTTPStatus
		view.Title = c.PageTitle
		view.FinalURL = c.FinalURL
		view.Screenshots = screenshots(c, reportDir)
	}

	if e := r.Enrichment; e != nil {
		view.Technologies = e.Technologies
		view.Degraded = e.Reason
		if e.SSL != nil {
			view.SSL = &SSLView{SSLSummary: *e.SSL, DaysRemaining: e.SSL.DaysRemaining(now)}
		}
		names := make([]string, 0, len(e.InterestingHeaders))
		for name := range e.InterestingHeaders {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			view.Headers = append(view.Headers, HeaderPair{Name: name, Value: e.InterestingHeaders[name]})
		}
	}
	return view
}

func screenshots(c *models.CaptureSuccess, reportDir string) []Screenshot {
	if len(c.Artifacts) == 0 {
		if c.ArtifactRef == "" {
			return nil
		}
		return []Screenshot{{Viewport: "desktop", Path: relativeTo(reportDir, c.ArtifactRef)}}
	}

	viewports := make([]string, 0, len(c.Artifacts))
	for vp := range c.Artifacts {
		viewports = append(viewports, vp)
	}
	sort.Strings(viewports)

	shots := make([]Screenshot, 0, len(viewports))
	for _, vp := range viewports {
		shots = append(shots, Screenshot{Viewport: vp, Path: relativeTo(reportDir, c.Artifacts[vp])})
	}
	return shots
}

func relativeTo(dir, path string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return filepath.ToSlash(path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
