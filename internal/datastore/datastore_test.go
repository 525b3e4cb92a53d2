package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResultSet() *models.ResultSet {
	completed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ok := models.CanonicalTarget{Scheme: "https", Host: "b.example", Port: 443, Path: "/",
		Provenance: []models.SourceKind{models.SourceURLList, models.SourceSubdomains}}
	failed := models.CanonicalTarget{Scheme: "http", Host: "a.example", Port: 8080, Path: "/admin"}

	success := models.NewTargetResult(ok, models.StatusSucceeded)
	success.Attempts = 1
	success.Elapsed = 1500 * time.Millisecond
	success.CompletedAt = completed
	success.Capture = &models.CaptureSuccess{
		ArtifactRef: "screenshots/https_b.example_443_desktop.png",
		HTTPStatus:  200,
		Headers:     map[string]string{"server": "nginx"},
		PageTitle:   "Welcome",
		FinalURL:    "https://b.example/",
	}
	success.Enrichment = &models.EnrichmentBundle{
		Technologies: []models.Technology{{Name: "Nginx"}, {Name: "WordPress"}},
		SSL: &models.SSLSummary{
			Issuer:   "R3",
			NotAfter: completed.Add(90 * 24 * time.Hour),
		},
	}

	failure := models.NewTargetResult(failed, models.StatusFailed)
	failure.Attempts = 3
	failure.Cause = "navigation timed out"
	failure.FailureKind = models.FailureTimeout
	failure.CompletedAt = completed

	return &models.ResultSet{
		RunID:     "run-1",
		StartedAt: completed.Add(-time.Minute),
		Results:   []models.TargetResult{success, failure},
	}
}

func TestResultDumper_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	rs := sampleResultSet()

	written, err := NewResultDumper(path, zerolog.Nop()).Write(rs)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	loaded, err := LoadResultSet(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	require.Len(t, loaded.Results, 2)
	assert.Equal(t, rs.Results[0].Key, loaded.Results[0].Key)
	assert.Equal(t, "Welcome", loaded.Results[0].Capture.PageTitle)
	assert.Equal(t, models.FailureTimeout, loaded.Results[1].FailureKind)
	assert.Equal(t, rs.Results[0].Elapsed, loaded.Results[0].Elapsed)
}

func TestResultDumper_NilResultSet(t *testing.T) {
	_, err := NewResultDumper(filepath.Join(t.TempDir(), "r.json"), zerolog.Nop()).Write(nil)
	require.Error(t, err)
}

func TestLoadResultSet_Missing(t *testing.T) {
	_, err := LoadResultSet(filepath.Join(t.TempDir(), "nope.json"), zerolog.Nop())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCapturedKeys(t *testing.T) {
	rs := sampleResultSet()
	keys := CapturedKeys(rs)
	assert.Equal(t, map[string]struct{}{"https://b.example:443/": {}}, keys)
	assert.Empty(t, CapturedKeys(nil))
}

func TestParquet_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.parquet")
	rs := sampleResultSet()

	writer, err := NewParquetWriter(path, "zstd", zerolog.Nop())
	require.NoError(t, err)
	res, err := writer.Write(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordsWritten)
	assert.FileExists(t, path)

	results, runID, err := NewParquetReader(zerolog.Nop()).Read(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	require.Len(t, results, 2)

	// rows are written sorted by identity key
	failed, succeeded := results[0], results[1]
	assert.Equal(t, "http://a.example:8080/admin", failed.Key)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, 3, failed.Attempts)
	assert.Equal(t, models.FailureTimeout, failed.FailureKind)
	assert.Nil(t, failed.Capture)
	assert.Nil(t, failed.Enrichment)

	assert.Equal(t, models.StatusSucceeded, succeeded.Status)
	assert.Equal(t, []models.SourceKind{models.SourceURLList, models.SourceSubdomains}, succeeded.Target.Provenance)
	require.NotNil(t, succeeded.Capture)
	assert.Equal(t, 200, succeeded.Capture.HTTPStatus)
	assert.Equal(t, "nginx", succeeded.Capture.Headers["server"])
	assert.Equal(t, []string{"Nginx", "WordPress"}, succeeded.Enrichment.TechnologyNames())
	require.NotNil(t, succeeded.Enrichment.SSL)
	assert.Equal(t, "R3", succeeded.Enrichment.SSL.Issuer)
	assert.Equal(t, 1500*time.Millisecond, succeeded.Elapsed)
}

func TestParquetWriter_Compression(t *testing.T) {
	for _, codec := range []string{"gzip", "snappy", "none", ""} {
		t.Run(codec, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "r.parquet")
			writer, err := NewParquetWriter(path, codec, zerolog.Nop())
			require.NoError(t, err)
			_, err = writer.Write(context.Background(), sampleResultSet())
			require.NoError(t, err)

			results, _, err := NewParquetReader(zerolog.Nop()).Read(path)
			require.NoError(t, err)
			assert.Len(t, results, 2)
		})
	}
}

func TestParquetWriter_Validation(t *testing.T) {
	_, err := NewParquetWriter("", "zstd", zerolog.Nop())
	require.Error(t, err)

	writer, err := NewParquetWriter(filepath.Join(t.TempDir(), "r.parquet"), "", zerolog.Nop())
	require.NoError(t, err)

	_, err = writer.Write(context.Background(), nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = writer.Write(ctx, sampleResultSet())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParquetReader_Missing(t *testing.T) {
	_, _, err := NewParquetReader(zerolog.Nop()).Read(filepath.Join(t.TempDir(), "none.parquet"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}
