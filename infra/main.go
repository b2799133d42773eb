package infra

import (
	"context"
	"log"

	"github.com/clearwm/clearwm-service/config"
)

type Infra struct {
	Logger    *LoggerClient
	Telemetry *Telemetry
	Postgres  *PostgresClient
	Redis     *RedisClient
	Minio     *MinioClient
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	env := cfg.EnvConfig

	telemetry, err := InitTelemetry(context.Background(), env)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	logger := InitLoggerClient(env)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	postgres := InitPostgresClient(env)
	redis := InitRedisClient(env)

	var minioClient *MinioClient
	if env.RemoteStorage() {
		minioClient = InitMinioClient(env)
		if minioClient == nil {
			panic("Failed to initialize MinIO service")
		}
		ctx := context.Background()
		if err := minioClient.HealthCheck(ctx); err != nil {
			log.Printf("Warning: MinIO health check failed: %v", err)
		}
		if err := minioClient.EnsureBucket(ctx, env.Storage.Bucket); err != nil {
			log.Fatalf("Failed to ensure storage bucket %q: %v", env.Storage.Bucket, err)
		}
	}

	infraInstance = &Infra{
		Logger:    logger,
		Telemetry: telemetry,
		Postgres:  postgres,
		Redis:     redis,
		Minio:     minioClient,
	}

	return infraInstance
}

func GetClient() *Infra {
	if infraInstance == nil {
		panic("Infra not initialized. Call InitInfra() first.")
	}
	return infraInstance
}
