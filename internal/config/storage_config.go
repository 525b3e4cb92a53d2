package config

// StorageConfig holds configuration for persisted run output
type StorageConfig struct {
	ResultsFileName  string `json:"results_file_name,omitempty" yaml:"results_file_name,omitempty"`
	ParquetEnabled   bool   `json:"parquet_enabled" yaml:"parquet_enabled"`
	ParquetFileName  string `json:"parquet_file_name,omitempty" yaml:"parquet_file_name,omitempty"`
	CompressionCodec string `json:"compression_codec,omitempty" yaml:"compression_codec,omitempty" validate:"omitempty,oneof=zstd gzip snappy none"`
	HistoryDBPath    string `json:"history_db_path,omitempty" yaml:"history_db_path,omitempty"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		ResultsFileName:  DefaultResultsFileName,
		ParquetEnabled:   true,
		ParquetFileName:  DefaultParquetFileName,
		CompressionCodec: DefaultCompressionCodec,
		HistoryDBPath:    DefaultHistoryDBPath,
	}
}
