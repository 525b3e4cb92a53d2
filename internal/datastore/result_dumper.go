package datastore

import (
	"encoding/json"
	"fmt"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
)

// ResultDumper persists a finalized ResultSet as indented JSON.
type ResultDumper struct {
	path        string
	fileManager *common.FileManager
	logger      zerolog.Logger
}

// NewResultDumper creates a dumper writing to path.
func NewResultDumper(path string, logger zerolog.Logger) *ResultDumper {
	logger = logger.With().Str("component", "ResultDumper").Logger()
	return &ResultDumper{
		path:        path,
		fileManager: common.NewFileManager(logger),
		logger:      logger,
	}
}

// Write replaces the dump atomically and returns its path.
func (d *ResultDumper) Write(rs *models.ResultSet) (string, error) {
	if rs == nil {
		return "", common.NewValidationError("result_set", rs, "result set cannot be nil")
	}

	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return "", common.WrapError(err, "failed to marshal result set")
	}
	if err := d.fileManager.WriteFileAtomic(d.path, data, 0o644); err != nil {
		return "", err
	}

	d.logger.Info().Str("path", d.path).Int("results", len(rs.Results)).Msg("Result set written")
	return d.path, nil
}

// LoadResultSet reads a dump written by ResultDumper. A missing file is reported as
// common.ErrNotFound.
func LoadResultSet(path string, logger zerolog.Logger) (*models.ResultSet, error) {
	fm := common.NewFileManager(logger)
	if !fm.FileExists(path) {
		return nil, fmt.Errorf("result set %s: %w", path, common.ErrNotFound)
	}

	data, err := fm.ReadFile(path, common.DefaultMaxReadSize)
	if err != nil {
		return nil, err
	}

	var rs models.ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, common.WrapError(err, "failed to parse result set: "+path)
	}
	return &rs, nil
}

// CapturedKeys returns the identity keys of the succeeded targets of rs.
func CapturedKeys(rs *models.ResultSet) map[string]struct{} {
	keys := make(map[string]struct{})
	if rs == nil {
		return keys
	}
	for _, r := range rs.Results {
		if r.Status == models.StatusSucceeded {
			keys[r.Key] = struct{}{}
		}
	}
	return keys
}
