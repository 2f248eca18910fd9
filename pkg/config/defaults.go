package config

// Default values applied when the YAML omits a field or carries an
// unusable value. Invalid values never abort startup; they fall back so
// the runtime stays operational.

// DefaultWorkerConfig returns the default liveness settings.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		HeartbeatInterval: 30,
		HeartbeatTimeout:  90,
		SweepInterval:     60, // 2x heartbeat interval
	}
}

// DefaultRetryConfig returns the default blob upload retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelayMS: 100,
		MaxDelayMS:     5000,
		Multiplier:     2.0,
	}
}

// DefaultStorageConfig returns the default blob store settings.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Provider:       "s3",
		Endpoint:       "http://localhost:9000",
		Bucket:         "checkpoints",
		Region:         "us-east-1",
		MaxUploadBytes: 5 << 30,
	}
}

func validateAndApplyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}

	workerDefaults := DefaultWorkerConfig()
	if cfg.Worker.HeartbeatInterval <= 0 {
		cfg.Worker.HeartbeatInterval = workerDefaults.HeartbeatInterval
	}
	if cfg.Worker.HeartbeatTimeout <= 0 {
		cfg.Worker.HeartbeatTimeout = workerDefaults.HeartbeatTimeout
	}
	if cfg.Worker.SweepInterval <= 0 {
		cfg.Worker.SweepInterval = 2 * cfg.Worker.HeartbeatInterval
	}

	retryDefaults := DefaultRetryConfig()
	if cfg.Checkpoint.Retry.MaxAttempts <= 0 {
		cfg.Checkpoint.Retry.MaxAttempts = retryDefaults.MaxAttempts
	}
	if cfg.Checkpoint.Retry.InitialDelayMS <= 0 {
		cfg.Checkpoint.Retry.InitialDelayMS = retryDefaults.InitialDelayMS
	}
	if cfg.Checkpoint.Retry.MaxDelayMS < cfg.Checkpoint.Retry.InitialDelayMS {
		cfg.Checkpoint.Retry.MaxDelayMS = retryDefaults.MaxDelayMS
	}
	if cfg.Checkpoint.Retry.Multiplier < 1.0 {
		cfg.Checkpoint.Retry.Multiplier = retryDefaults.Multiplier
	}
	if cfg.Checkpoint.PayloadMismatch != PayloadMismatchReject {
		cfg.Checkpoint.PayloadMismatch = PayloadMismatchShortCircuit
	}
	if cfg.Checkpoint.PurgeQueue == "" {
		cfg.Checkpoint.PurgeQueue = "default"
	}

	storageDefaults := DefaultStorageConfig()
	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = storageDefaults.Provider
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = storageDefaults.Bucket
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = storageDefaults.Region
	}
	if cfg.Storage.MaxUploadBytes <= 0 {
		cfg.Storage.MaxUploadBytes = storageDefaults.MaxUploadBytes
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Output == "" {
		cfg.Logger.Output = "console"
	}
}
