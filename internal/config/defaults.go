package config

// ApplyDefaults fills every unset field with its documented default,
// matching spec §6's configuration option list.
func ApplyDefaults(cfg *Config) {
	if cfg.MetadataDirectory == "" {
		cfg.MetadataDirectory = cfg.DataDirectory
	}
	if cfg.MetadataMode == "" {
		cfg.MetadataMode = MetadataModeSeparateDirectory
	}
	if cfg.InlineMetadataDirectoryName == "" {
		cfg.InlineMetadataDirectoryName = ".lamina-meta"
	}
	if cfg.TempFilePrefix == "" {
		cfg.TempFilePrefix = ".lamina-tmp-"
	}
	if cfg.XattrPrefix == "" {
		cfg.XattrPrefix = "user.lamina"
	}
	if cfg.NetworkMode == "" {
		cfg.NetworkMode = NetworkModeNone
	}
	if cfg.RetryCount == 0 {
		cfg.RetryCount = 5
	}
	if cfg.RetryDelayMs == 0 {
		cfg.RetryDelayMs = 100
	}

	applyBucketDefaults(&cfg.BucketDefaults)
	applyDatabaseDefaults(&cfg.Database)
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
}

func applyBucketDefaults(cfg *BucketDefaultsConfig) {
	if cfg.Type == "" {
		cfg.Type = "GeneralPurpose"
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}
