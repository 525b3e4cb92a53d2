package models

// ParquetTargetResult defines the structure for storing a TargetResult in Parquet files.
type ParquetTargetResult struct {
	Key           string   `parquet:"key"`
	URL           string   `parquet:"url"`
	Scheme        string   `parquet:"scheme"`
	Host          string   `parquet:"host"`
	Port          int32    `parquet:"port"`
	Path          string   `parquet:"path"`
	Provenance    []string `parquet:"provenance,list"`
	Status        string   `parquet:"status"`
	Attempts      int32    `parquet:"attempts"`
	ElapsedMs     int64    `parquet:"elapsed_ms"`
	Cause         *string  `parquet:"cause,optional"`
	FailureKind   *string  `parquet:"failure_kind,optional"`
	HTTPStatus    *int32   `parquet:"http_status,optional"`
	PageTitle     *string  `parquet:"page_title,optional"`
	FinalURL      *string  `parquet:"final_url,optional"`
	ArtifactRef   *string  `parquet:"artifact_ref,optional"`
	HeadersJSON   *string  `parquet:"headers_json,optional"`
	Technologies  []string `parquet:"technologies,list"`
	SSLIssuer     *string  `parquet:"ssl_issuer,optional"`
	SSLNotAfter   *int64   `parquet:"ssl_not_after,optional"`
	SSLExpired    *bool    `parquet:"ssl_expired,optional"`
	CompletedAtMs int64    `parquet:"completed_at_ms"`
	Resumed       bool     `parquet:"resumed"`
	RunID         string   `parquet:"run_id"`
}
