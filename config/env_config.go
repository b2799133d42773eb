package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	StorageModeLocal  = "local"
	StorageModeRemote = "remote"
)

type EnvConfig struct {
	Storage struct {
		Mode          string // "local" or "remote"
		Bucket        string // required when Mode is "remote"
		UploadsPrefix string
		OutputsPrefix string
		SignedURLTTL  time.Duration
		WorkingDir    string
		UploadDir     string
	}
	Minio struct {
		Endpoint     string
		RootUser     string
		RootPassword string
		UseSSL       bool
	}
	Postgres struct {
		Host     string
		Database string
		Username string
		Password string
		Port     string
	}
	Redis struct {
		Host     string
		Port     string
		Password string
		Database int
	}
	Processor struct {
		Command string
		Timeout time.Duration
	}
	Auth struct {
		SecretKey string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	CORS struct {
		AllowDomains string
	}
	Environment struct {
		Mode string
	}
	Server struct {
		Port string
	}
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Storage
	config.Storage.Mode = strings.ToLower(os.Getenv("STORAGE_MODE"))
	if config.Storage.Mode == "" {
		config.Storage.Mode = StorageModeLocal
	}
	config.Storage.Bucket = os.Getenv("STORAGE_BUCKET")
	config.Storage.UploadsPrefix = os.Getenv("UPLOADS_PREFIX")
	if config.Storage.UploadsPrefix == "" {
		config.Storage.UploadsPrefix = "uploads"
	}
	config.Storage.OutputsPrefix = os.Getenv("OUTPUTS_PREFIX")
	if config.Storage.OutputsPrefix == "" {
		config.Storage.OutputsPrefix = "outputs"
	}
	if ttlStr := os.Getenv("SIGNED_URL_TTL"); ttlStr != "" {
		if ttl, err := time.ParseDuration(ttlStr); err == nil {
			config.Storage.SignedURLTTL = ttl
		}
	}
	if config.Storage.SignedURLTTL == 0 {
		config.Storage.SignedURLTTL = time.Hour
	}
	config.Storage.WorkingDir = os.Getenv("WORKING_DIR")
	if config.Storage.WorkingDir == "" {
		config.Storage.WorkingDir = "working_dir"
	}
	config.Storage.UploadDir = filepath.Join(config.Storage.WorkingDir, "uploads")

	// MinIO
	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")
	config.Minio.UseSSL = os.Getenv("MINIO_USE_SSL") == "true"

	// Postgres (optional - job store falls back to in-memory when unset)
	config.Postgres.Host = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")
	if config.Postgres.Port == "" {
		config.Postgres.Port = "5432"
	}

	// Redis (optional)
	config.Redis.Host = os.Getenv("REDIS_HOST")
	config.Redis.Port = os.Getenv("REDIS_PORT")
	if config.Redis.Port == "" {
		config.Redis.Port = "6379"
	}
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	// Processor
	config.Processor.Command = os.Getenv("PROCESSOR_COMMAND")
	if timeoutStr := os.Getenv("PROCESSOR_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			config.Processor.Timeout = timeout
		}
	}
	if config.Processor.Timeout == 0 {
		config.Processor.Timeout = 30 * time.Minute
	}

	config.Auth.SecretKey = os.Getenv("AUTH_SECRET_KEY")

	// Grafana/OpenTelemetry
	otlpEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	otlpEndpoint = strings.TrimPrefix(otlpEndpoint, "https://")
	otlpEndpoint = strings.TrimPrefix(otlpEndpoint, "http://")
	config.Grafana.OTLPEndpoint = otlpEndpoint
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "clearwm-service"
	}

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}

	config.Server.Port = os.Getenv("PORT")
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	return &config
}

// Validate rejects configurations that cannot produce a working service.
// Remote storage without a bucket or credentials is fatal at startup, not
// per-job.
func (c *EnvConfig) Validate() error {
	switch c.Storage.Mode {
	case StorageModeLocal:
	case StorageModeRemote:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("STORAGE_BUCKET must be set when STORAGE_MODE=remote")
		}
		if c.Minio.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT must be set when STORAGE_MODE=remote")
		}
		if c.Minio.RootUser == "" || c.Minio.RootPassword == "" {
			return fmt.Errorf("MINIO_ROOT_USER and MINIO_ROOT_PASSWORD must be set when STORAGE_MODE=remote")
		}
	default:
		return fmt.Errorf("unknown STORAGE_MODE %q (expected %q or %q)", c.Storage.Mode, StorageModeLocal, StorageModeRemote)
	}
	return nil
}

func (c *EnvConfig) RemoteStorage() bool {
	return c.Storage.Mode == StorageModeRemote
}
