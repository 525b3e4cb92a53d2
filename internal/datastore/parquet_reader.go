package datastore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// ParquetReader handles reading data from Parquet files.
type ParquetReader struct {
	logger      zerolog.Logger
	transformer *RecordTransformer
}

// NewParquetReader creates a new ParquetReader.
func NewParquetReader(logger zerolog.Logger) *ParquetReader {
	logger = logger.With().Str("component", "ParquetReader").Logger()
	return &ParquetReader{
		logger:      logger,
		transformer: NewRecordTransformer(logger),
	}
}

// Read returns the results stored in path together with the run ID of the first row.
// A missing file is reported as common.ErrNotFound.
func (pr *ParquetReader) Read(path string) ([]models.TargetResult, string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("parquet file %s: %w", path, common.ErrNotFound)
		}
		return nil, "", common.WrapError(err, "failed to open parquet file: "+path)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	var (
		results []models.TargetResult
		runID   string
	)
	for {
		row := models.ParquetTargetResult{}
		if err := reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, "", fmt.Errorf("failed to read row from %s: %w", path, err)
		}
		if runID == "" {
			runID = row.RunID
		}
		results = append(results, pr.transformer.FromParquetRow(row))
	}

	pr.logger.Debug().Int("record_count", len(results)).Str("file", path).Msg("Read records from Parquet file")
	return results, runID, nil
}
