package datastore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// ParquetWriterConfig holds configuration for ParquetWriter
type ParquetWriterConfig struct {
	CompressionType string
}

// DefaultParquetWriterConfig returns default configuration
func DefaultParquetWriterConfig() ParquetWriterConfig {
	return ParquetWriterConfig{CompressionType: "zstd"}
}

// WriteResult contains the result of a write operation
type WriteResult struct {
	FilePath       string
	RecordsWritten int
	FileSize       int64
	WriteTime      time.Duration
}

// ParquetWriter writes a finalized ResultSet to a single parquet file.
type ParquetWriter struct {
	path         string
	logger       zerolog.Logger
	fileManager  *common.FileManager
	transformer  *RecordTransformer
	writerConfig ParquetWriterConfig
}

// ParquetWriterBuilder provides a fluent interface for creating ParquetWriter
type ParquetWriterBuilder struct {
	path         string
	logger       zerolog.Logger
	writerConfig ParquetWriterConfig
}

// NewParquetWriterBuilder creates a new ParquetWriterBuilder
func NewParquetWriterBuilder(logger zerolog.Logger) *ParquetWriterBuilder {
	return &ParquetWriterBuilder{
		logger:       logger.With().Str("component", "ParquetWriter").Logger(),
		writerConfig: DefaultParquetWriterConfig(),
	}
}

// WithPath sets the output file
func (b *ParquetWriterBuilder) WithPath(path string) *ParquetWriterBuilder {
	b.path = path
	return b
}

// WithCompression sets the compression codec (zstd, gzip, snappy or none)
func (b *ParquetWriterBuilder) WithCompression(codec string) *ParquetWriterBuilder {
	if codec != "" {
		b.writerConfig.CompressionType = codec
	}
	return b
}

// Build creates a new ParquetWriter instance
func (b *ParquetWriterBuilder) Build() (*ParquetWriter, error) {
	if b.path == "" {
		return nil, common.NewValidationError("path", b.path, "parquet output path cannot be empty")
	}

	return &ParquetWriter{
		path:         b.path,
		logger:       b.logger,
		fileManager:  common.NewFileManager(b.logger),
		transformer:  NewRecordTransformer(b.logger),
		writerConfig: b.writerConfig,
	}, nil
}

// NewParquetWriter creates a new ParquetWriter using builder pattern
func NewParquetWriter(path, codec string, logger zerolog.Logger) (*ParquetWriter, error) {
	return NewParquetWriterBuilder(logger).
		WithPath(path).
		WithCompression(codec).
		Build()
}

// Write replaces the parquet file with the rows of rs, sorted by identity key.
func (pw *ParquetWriter) Write(ctx context.Context, rs *models.ResultSet) (*WriteResult, error) {
	if rs == nil {
		return nil, common.NewValidationError("result_set", rs, "result set cannot be nil")
	}
	startTime := time.Now()

	results := rs.Sorted()
	rows := make([]models.ParquetTargetResult, 0, len(results))
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("parquet write cancelled: %w", err)
		}
		rows = append(rows, pw.transformer.ToParquetRow(r, rs.RunID))
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[models.ParquetTargetResult](&buf, pw.compressionOption())
	written, err := writer.Write(rows)
	if err != nil {
		return nil, common.WrapError(err, "failed to write results to parquet")
	}
	if err := writer.Close(); err != nil {
		return nil, common.WrapError(err, "failed to close parquet writer")
	}

	if err := pw.fileManager.WriteFileAtomic(pw.path, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	result := &WriteResult{
		FilePath:       pw.path,
		RecordsWritten: written,
		FileSize:       int64(buf.Len()),
		WriteTime:      time.Since(startTime),
	}
	pw.logger.Info().
		Str("file_path", result.FilePath).
		Int("records_written", result.RecordsWritten).
		Dur("write_time", result.WriteTime).
		Msg("Wrote results to Parquet file")
	return result, nil
}

func (pw *ParquetWriter) compressionOption() parquet.WriterOption {
	switch pw.writerConfig.CompressionType {
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "snappy":
		return parquet.Compression(&parquet.Snappy)
	case "none":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Zstd)
	}
}
