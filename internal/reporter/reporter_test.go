package reporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalizedResultSet(outputDir string) *models.ResultSet {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	wp := models.CanonicalTarget{Scheme: "https", Host: "blog.example", Port: 443, Path: "/"}
	ip := models.CanonicalTarget{Scheme: "http", Host: "10.0.0.5", Port: 8080, Path: "/"}
	down := models.CanonicalTarget{Scheme: "https", Host: "down.example", Port: 443, Path: "/"}

	ok := models.NewTargetResult(wp, models.StatusSucceeded)
	ok.Attempts = 1
	ok.Capture = &models.CaptureSuccess{
		ArtifactRef: filepath.Join(outputDir, "screenshots", "blog.example_443", "desktop", "index.png"),
		HTTPStatus:  200,
		PageTitle:   "My <Blog>",
	}
	ok.Enrichment = &models.EnrichmentBundle{
		Technologies:       []models.Technology{{Name: "WordPress", Version: "6.4"}, {Name: "Nginx"}},
		InterestingHeaders: map[string]string{"server": "nginx"},
		SSL:                &models.SSLSummary{Issuer: "R3", NotAfter: now.Add(30 * 24 * time.Hour)},
	}

	plain := models.NewTargetResult(ip, models.StatusSucceeded)
	plain.Attempts = 2
	plain.Capture = &models.CaptureSuccess{HTTPStatus: 403, PageTitle: "Forbidden"}

	failed := models.NewTargetResult(down, models.StatusFailed)
	failed.Attempts = 3
	failed.Cause = "connection refused"
	failed.FailureKind = models.FailureNetworkError

	return &models.ResultSet{
		RunID:      "run-42",
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		Results:    []models.TargetResult{failed, ok, plain},
		Summary: models.ResultSummary{
			Total: 3, Succeeded: 2, Failed: 1,
			StatusCodes:  map[int]int{200: 1, 403: 1},
			Technologies: map[string]int{"WordPress": 1, "Nginx": 1},
			CMS:          map[string]int{"wordpress": 1},
		},
	}
}

func newTestReporter(t *testing.T, cfg config.ReporterConfig, dir string) *HtmlReporter {
	t.Helper()
	r, err := NewHtmlReporter(cfg, dir, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func TestHtmlReporter_Render(t *testing.T) {
	dir := t.TempDir()
	r := newTestReporter(t, config.NewDefaultReporterConfig(), dir)

	paths, err := r.Render(finalizedResultSet(dir))
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "report.html")}, paths)

	content, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	html := string(content)

	assert.Contains(t, html, "run-42")
	assert.Contains(t, html, "https://blog.example/")
	assert.Contains(t, html, "My &lt;Blog&gt;")
	assert.Contains(t, html, `src="screenshots/blog.example_443/desktop/index.png"`)
	assert.Contains(t, html, "WordPress 6.4")
	assert.Contains(t, html, "connection refused")
	assert.Contains(t, html, "issued by R3")

	// ordered by identity key
	assert.Less(t, strings.Index(html, "http://10.0.0.5:8080/"), strings.Index(html, "https://blog.example/"))
	assert.Less(t, strings.Index(html, "https://blog.example/"), strings.Index(html, "https://down.example/"))
}

func TestHtmlReporter_Chunked(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewDefaultReporterConfig()
	cfg.MaxResultsPerReportFile = 2
	cfg.ReportFileName = "scan"

	paths, err := newTestReporter(t, cfg, dir).Render(finalizedResultSet(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "scan-part1.html"),
		filepath.Join(dir, "scan-part2.html"),
	}, paths)

	second, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(second), "Part 2 of 2")
	assert.Contains(t, string(second), "https://down.example/")
	assert.NotContains(t, string(second), "https://blog.example/")
}

func TestHtmlReporter_EmptyRun(t *testing.T) {
	dir := t.TempDir()
	rs := &models.ResultSet{RunID: "empty", FinishedAt: time.Now()}

	paths, err := newTestReporter(t, config.NewDefaultReporterConfig(), dir).Render(rs)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	content, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "No targets in this run.")
}

func TestHtmlReporter_RequiresFinalizedSet(t *testing.T) {
	r := newTestReporter(t, config.NewDefaultReporterConfig(), t.TempDir())

	_, err := r.Render(&models.ResultSet{RunID: "open"})
	assert.ErrorIs(t, err, ErrNotFinalized)

	_, err = r.Render(nil)
	assert.ErrorIs(t, err, ErrNotFinalized)
}

func TestHtmlReporter_CustomTemplate(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "custom.tmpl")
	require.NoError(t, os.WriteFile(tmplPath, []byte(`{{.ReportTitle}}:{{len .Results}}`), 0o644))

	cfg := config.NewDefaultReporterConfig()
	cfg.TemplatePath = tmplPath
	cfg.ReportTitle = "Custom"

	paths, err := newTestReporter(t, cfg, dir).Render(finalizedResultSet(dir))
	require.NoError(t, err)

	content, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "Custom:3", string(content))
}

func TestCommandGenerator_Generate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "commands")
	g, err := NewCommandGenerator(dir, zerolog.Nop())
	require.NoError(t, err)

	files, err := g.Generate(finalizedResultSet(t.TempDir()))
	require.NoError(t, err)

	for _, key := range []string{CommandTestSSL, CommandNikto, CommandNuclei, CommandWPScan, CommandTargets, CommandDomains, CommandIPs, CommandRunAll} {
		assert.Contains(t, files, key)
	}
	assert.NotContains(t, files, CommandJoomScan)
	assert.NotContains(t, files, CommandSharePoint)

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, "--vulnerable --cipher-per-proto --html blog.example\n", read("testssl_cmds.txt"))
	assert.Equal(t, "http://10.0.0.5:8080/\nhttps://blog.example/\n", read("all_targets.txt"))
	assert.Equal(t, "10.0.0.5:8080\nblog.example\n", read("domains.txt"))
	assert.Equal(t, "10.0.0.5\n", read("ips.txt"))
	assert.Equal(t, "https://blog.example/\n", read("wordpress_targets.txt"))

	wpscan := read("run_wpscan.sh")
	assert.Contains(t, wpscan, "wpscan --stealthy --url 'https://blog.example/'")
	assert.Contains(t, wpscan, "> 'wpscan_blog.example.txt'")

	nuclei := read("run_nuclei.sh")
	assert.Contains(t, nuclei, "nuclei -l 'wordpress_targets.txt' -t wordpress/")
	assert.Contains(t, nuclei, "nuclei -l 'all_targets.txt' -t cms/")

	runAll := read("run_all_scans.sh")
	assert.Contains(t, runAll, "./run_testssl.sh")
	assert.Contains(t, runAll, "./run_wpscan.sh")
	assert.NotContains(t, runAll, "./run_joomscan.sh")
	assert.Less(t, strings.Index(runAll, "./run_nikto.sh"), strings.Index(runAll, "./run_nuclei.sh"))

	info, err := os.Stat(filepath.Join(dir, "run_all_scans.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(ScriptPermissions), info.Mode().Perm())
}

func TestCommandGenerator_NoSuccesses(t *testing.T) {
	dir := t.TempDir()
	g, err := NewCommandGenerator(dir, zerolog.Nop())
	require.NoError(t, err)

	files, err := g.Generate(&models.ResultSet{FinishedAt: time.Now()})
	require.NoError(t, err)
	assert.Contains(t, files, CommandRunAll)
	assert.NotContains(t, files, CommandNikto)
	assert.NotContains(t, files, CommandIPs)
	assert.NoFileExists(t, filepath.Join(dir, "run_testssl.sh"))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, `'$(rm -rf /)'`, shellQuote("$(rm -rf /)"))
}

func TestTemplateHelpers(t *testing.T) {
	assert.Equal(t, "Network Error", titleCase("network_error"))
	assert.Equal(t, "66.7%", percent(2, 3))
	assert.Equal(t, "0%", percent(1, 0))
}
