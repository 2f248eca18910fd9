package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	MySQL      MySQLConfig      `yaml:"mysql"`
	Storage    StorageConfig    `yaml:"storage"`
	Worker     WorkerConfig     `yaml:"worker"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Logger     LoggerConfig     `yaml:"logger"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // bearer token for the facade (optional, if empty, auth is disabled)
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// StorageConfig blob store (S3-compatible) configuration
type StorageConfig struct {
	Provider        string `yaml:"provider"` // s3, memory
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathPrefix      string `yaml:"path_prefix"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
}

// WorkerConfig worker liveness configuration
type WorkerConfig struct {
	HeartbeatInterval int `yaml:"heartbeat_interval"` // expected heartbeat interval (seconds)
	HeartbeatTimeout  int `yaml:"heartbeat_timeout"`  // heartbeats older than this mark the worker UNHEALTHY (seconds)
	SweepInterval     int `yaml:"sweep_interval"`     // liveness sweep interval (seconds)
}

// CheckpointConfig checkpoint manager configuration
type CheckpointConfig struct {
	Retry           RetryConfig `yaml:"retry"`
	PayloadMismatch string      `yaml:"payload_mismatch"` // short_circuit, reject
	PurgeQueue      string      `yaml:"purge_queue"`      // asynq queue name for orphan blob purges
}

// RetryConfig blob upload retry configuration
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialDelayMS int     `yaml:"initial_delay_ms"`
	MaxDelayMS     int     `yaml:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// Payload mismatch policies for checkpoint replay under a reused
// idempotency key.
const (
	PayloadMismatchShortCircuit = "short_circuit"
	PayloadMismatchReject       = "reject"
)

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	validateAndApplyDefaults(&cfg)
	GlobalConfig = &cfg
	return nil
}
