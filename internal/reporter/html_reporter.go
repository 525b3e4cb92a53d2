package reporter

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
)

// ErrNotFinalized is returned when a reporter is handed a ResultSet that has not been finalized.
var ErrNotFinalized = errors.New("result set is not finalized")

// HtmlReporter renders a finalized ResultSet into one or more static HTML files.
type HtmlReporter struct {
	cfg          config.ReporterConfig
	outputDir    string
	logger       zerolog.Logger
	template     *template.Template
	css          template.CSS
	fileManager  *common.FileManager
	directoryMgr *DirectoryManager
	now          func() time.Time
}

// NewHtmlReporter loads the configured template, falling back to the embedded one.
func NewHtmlReporter(cfg config.ReporterConfig, outputDir string, appLogger zerolog.Logger) (*HtmlReporter, error) {
	moduleLogger := appLogger.With().Str("component", "HtmlReporter").Logger()

	reporter := &HtmlReporter{
		cfg:          cfg,
		outputDir:    outputDir,
		logger:       moduleLogger,
		fileManager:  common.NewFileManager(moduleLogger),
		directoryMgr: NewDirectoryManager(moduleLogger),
		now:          time.Now,
	}

	if err := reporter.setupTemplate(); err != nil {
		return nil, err
	}

	css, err := assetsFS.ReadFile(embeddedCSSPath)
	if err != nil {
		moduleLogger.Warn().Err(err).Msg("Failed to embed CSS, report styling might be affected.")
	}
	reporter.css = template.CSS(css)

	return reporter, nil
}

func (r *HtmlReporter) setupTemplate() error {
	if r.cfg.TemplatePath != "" {
		return r.loadCustomTemplate()
	}
	return r.loadEmbeddedTemplate()
}

func (r *HtmlReporter) loadCustomTemplate() error {
	r.logger.Info().Str("template_path", r.cfg.TemplatePath).Msg("Loading custom report template from file.")

	tmpl, err := template.New(filepath.Base(r.cfg.TemplatePath)).
		Funcs(GetCommonTemplateFunctions()).
		ParseFiles(r.cfg.TemplatePath)
	if err != nil {
		return fmt.Errorf("failed to parse custom report template '%s': %w", r.cfg.TemplatePath, err)
	}

	r.template = tmpl
	return nil
}

func (r *HtmlReporter) loadEmbeddedTemplate() error {
	content, err := templatesFS.ReadFile(embeddedTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to load embedded default report template: %w", err)
	}

	tmpl, err := template.New(DefaultReportTemplateName).
		Funcs(GetCommonTemplateFunctions()).
		Parse(strings.ReplaceAll(string(content), "\r\n", "\n"))
	if err != nil {
		return fmt.Errorf("failed to parse embedded report template: %w", err)
	}

	r.template = tmpl
	return nil
}

// Render writes the report and returns the written paths. Results are ordered by identity
// key and split into parts of at most MaxResultsPerReportFile.
func (r *HtmlReporter) Render(rs *models.ResultSet) ([]string, error) {
	if rs == nil || rs.FinishedAt.IsZero() {
		return nil, ErrNotFinalized
	}
	if err := r.directoryMgr.EnsureOutputDirectories(r.outputDir); err != nil {
		return nil, err
	}

	results := rs.Sorted()
	maxResults := r.cfg.MaxResultsPerReportFile
	if maxResults <= 0 {
		maxResults = DefaultMaxResultsPerFile
	}

	totalChunks := max(1, (len(results)+maxResults-1)/maxResults)
	paths := make([]string, 0, totalChunks)

	for i := 0; i < totalChunks; i++ {
		start := i * maxResults
		end := min(start+maxResults, len(results))

		partInfo := ""
		if totalChunks > 1 {
			partInfo = fmt.Sprintf("Part %d of %d", i+1, totalChunks)
		}

		pageData := r.prepareReportData(rs, results[start:end], partInfo)
		outputPath := r.buildOutputPath(i+1, totalChunks)
		if err := r.executeAndWriteReport(pageData, outputPath); err != nil {
			return paths, fmt.Errorf("failed to write report part %d: %w", i+1, err)
		}
		paths = append(paths, outputPath)
	}

	r.logger.Info().Int("files", len(paths)).Int("results", len(results)).Msg("HTML report generated")
	return paths, nil
}

func (r *HtmlReporter) buildOutputPath(partNum, totalParts int) string {
	base := r.cfg.ReportFileName
	if base == "" {
		base = DefaultReportFileName
	}
	base = strings.TrimSuffix(base, ".html")

	if totalParts == 1 {
		return filepath.Join(r.outputDir, base+".html")
	}
	return filepath.Join(r.outputDir, fmt.Sprintf("%s-part%d.html", base, partNum))
}

func (r *HtmlReporter) prepareReportData(rs *models.ResultSet, chunk []models.TargetResult, partInfo string) ReportPageData {
	title := r.cfg.ReportTitle
	if title == "" {
		title = DefaultReportTitle
	}

	now := r.now()
	data := ReportPageData{
		ReportTitle:  title,
		GeneratedAt:  now.Format("2006-01-02 15:04:05"),
		RunID:        rs.RunID,
		PartInfo:     partInfo,
		StartedAt:    rs.StartedAt,
		FinishedAt:   rs.FinishedAt,
		Summary:      rs.Summary,
		StatusCodes:  statusHistogram(rs.Summary.StatusCodes),
		Technologies: histogram(rs.Summary.Technologies),
		CMS:          histogram(rs.Summary.CMS),
		Results:      make([]ResultView, 0, len(chunk)),
		CustomCSS:    r.css,
	}
	for _, res := range chunk {
		data.Results = append(data.Results, newResultView(res, r.outputDir, now))
	}
	return data
}

func (r *HtmlReporter) executeAndWriteReport(pageData ReportPageData, outputPath string) error {
	var htmlBuffer bytes.Buffer
	if err := r.template.Execute(&htmlBuffer, pageData); err != nil {
		r.logger.Error().Err(err).Str("output", outputPath).Msg("Failed to execute template")
		return fmt.Errorf("template execution failed: %w", err)
	}

	return r.fileManager.WriteFileAtomic(outputPath, htmlBuffer.Bytes(), FilePermissions)
}
