package scanner

import (
	"context"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/datastore"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/aleister1102/pendoc/internal/reporter"
)

// persist writes the result set as JSON and, when enabled, parquet.
func (s *Scanner) persist(ctx context.Context, rs *models.ResultSet, summary *RunSummary) {
	path, err := datastore.NewResultDumper(s.config.ResultsPath(), s.logger).Write(rs)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to write results file")
		summary.Errors = append(summary.Errors, err)
	} else {
		summary.ResultsPath = path
	}

	if !s.config.StorageConfig.ParquetEnabled {
		return
	}

	writer, err := datastore.NewParquetWriter(s.config.ParquetPath(), s.config.StorageConfig.CompressionCodec, s.logger)
	if err != nil {
		summary.Errors = append(summary.Errors, common.WrapError(err, "failed to initialize parquet writer"))
		return
	}
	res, err := writer.Write(ctx, rs)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to write parquet file")
		summary.Errors = append(summary.Errors, err)
		return
	}
	summary.ParquetPath = res.FilePath
}

// generateReports renders the HTML report and, when enabled, the tool command files.
func (s *Scanner) generateReports(rs *models.ResultSet, summary *RunSummary) {
	htmlReporter, err := reporter.NewHtmlReporter(s.config.ReporterConfig, s.config.OutputDir, s.logger)
	if err != nil {
		summary.Errors = append(summary.Errors, common.WrapError(err, "failed to initialize HTML reporter"))
	} else if paths, err := htmlReporter.Render(rs); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate HTML report")
		summary.Errors = append(summary.Errors, common.WrapError(err, "failed to generate HTML report(s)"))
	} else {
		summary.ReportPaths = paths
		s.logger.Info().Strs("paths", paths).Msg("HTML report(s) generated successfully")
	}

	if !s.config.ReporterConfig.GenerateCommands {
		return
	}

	generator, err := reporter.NewCommandGenerator(s.config.CommandsDir(), s.logger)
	if err != nil {
		summary.Errors = append(summary.Errors, common.WrapError(err, "failed to initialize command generator"))
		return
	}
	files, err := generator.Generate(rs)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate command files")
		summary.Errors = append(summary.Errors, err)
	}
	summary.CommandFiles = files
}
