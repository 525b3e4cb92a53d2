package datastore

import (
	"encoding/json"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
)

// RecordTransformer converts between TargetResult and its flat parquet row.
type RecordTransformer struct {
	logger zerolog.Logger
}

// NewRecordTransformer creates a new RecordTransformer
func NewRecordTransformer(logger zerolog.Logger) *RecordTransformer {
	return &RecordTransformer{
		logger: logger.With().Str("component", "RecordTransformer").Logger(),
	}
}

// ToParquetRow flattens a result. Only technology names and the SSL issuer/expiry survive
// the conversion.
func (rt *RecordTransformer) ToParquetRow(r models.TargetResult, runID string) models.ParquetTargetResult {
	provenance := make([]string, 0, len(r.Target.Provenance))
	for _, p := range r.Target.Provenance {
		provenance = append(provenance, string(p))
	}

	row := models.ParquetTargetResult{
		Key:           r.Key,
		URL:           r.URL,
		Scheme:        r.Target.Scheme,
		Host:          r.Target.Host,
		Port:          int32(r.Target.Port),
		Path:          r.Target.Path,
		Provenance:    provenance,
		Status:        string(r.Status),
		Attempts:      int32(r.Attempts),
		ElapsedMs:     r.Elapsed.Milliseconds(),
		Cause:         StringPtrOrNil(r.Cause),
		FailureKind:   StringPtrOrNil(string(r.FailureKind)),
		CompletedAtMs: r.CompletedAt.UnixMilli(),
		RunID:         runID,
		Resumed:       r.Resumed,
	}

	if c := r.Capture; c != nil {
		row.HTTPStatus = Int32PtrOrNilZero(int32(c.HTTPStatus))
		row.PageTitle = StringPtrOrNil(c.PageTitle)
		row.FinalURL = StringPtrOrNil(c.FinalURL)
		row.ArtifactRef = StringPtrOrNil(c.ArtifactRef)
		row.HeadersJSON = rt.marshalHeaders(c.Headers, r.URL)
	}

	if e := r.Enrichment; e != nil {
		row.Technologies = e.TechnologyNames()
		if e.SSL != nil {
			row.SSLIssuer = StringPtrOrNil(e.SSL.Issuer)
			row.SSLNotAfter = Int64PtrOrNilZero(e.SSL.NotAfter.UnixMilli())
			expired := e.SSL.Expired
			row.SSLExpired = &expired
		}
	}
	return row
}

// FromParquetRow rebuilds a TargetResult from a row written by ToParquetRow.
func (rt *RecordTransformer) FromParquetRow(row models.ParquetTargetResult) models.TargetResult {
	provenance := make([]models.SourceKind, 0, len(row.Provenance))
	for _, p := range row.Provenance {
		provenance = append(provenance, models.SourceKind(p))
	}

	r := models.TargetResult{
		Target: models.CanonicalTarget{
			Scheme:     row.Scheme,
			Host:       row.Host,
			Port:       int(row.Port),
			Path:       row.Path,
			Provenance: provenance,
		},
		Key:         row.Key,
		URL:         row.URL,
		Status:      models.TargetStatus(row.Status),
		Attempts:    int(row.Attempts),
		Elapsed:     time.Duration(row.ElapsedMs) * time.Millisecond,
		Cause:       deref(row.Cause),
		FailureKind: models.FailureKind(deref(row.FailureKind)),
		CompletedAt: time.UnixMilli(row.CompletedAtMs),
		Resumed:     row.Resumed,
	}

	if r.Status == models.StatusSucceeded {
		capture := &models.CaptureSuccess{
			ArtifactRef: deref(row.ArtifactRef),
			PageTitle:   deref(row.PageTitle),
			FinalURL:    deref(row.FinalURL),
		}
		if row.HTTPStatus != nil {
			capture.HTTPStatus = int(*row.HTTPStatus)
		}
		if row.HeadersJSON != nil {
			if err := json.Unmarshal([]byte(*row.HeadersJSON), &capture.Headers); err != nil {
				rt.logger.Warn().Err(err).Str("key", row.Key).Msg("Failed to unmarshal headers")
			}
		}
		r.Capture = capture
	}

	if len(row.Technologies) > 0 || row.SSLIssuer != nil || row.SSLNotAfter != nil {
		bundle := &models.EnrichmentBundle{}
		for _, name := range row.Technologies {
			bundle.Technologies = append(bundle.Technologies, models.Technology{Name: name})
		}
		if row.SSLIssuer != nil || row.SSLNotAfter != nil {
			ssl := &models.SSLSummary{Issuer: deref(row.SSLIssuer)}
			if row.SSLNotAfter != nil {
				ssl.NotAfter = time.UnixMilli(*row.SSLNotAfter)
			}
			if row.SSLExpired != nil {
				ssl.Expired = *row.SSLExpired
			}
			bundle.SSL = ssl
		}
		r.Enrichment = bundle
	}
	return r
}

func (rt *RecordTransformer) marshalHeaders(headers map[string]string, url string) *string {
	if len(headers) == 0 {
		return nil
	}

	data, err := json.Marshal(headers)
	if err != nil {
		rt.logger.Error().Err(err).Str("url", url).Msg("Failed to marshal headers")
		return nil
	}

	s := string(data)
	return &s
}
