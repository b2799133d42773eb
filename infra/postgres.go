package infra

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/clearwm/clearwm-service/config"
	"github.com/clearwm/clearwm-service/entity"
)

type PostgresClient struct {
	DB *gorm.DB
}

// InitPostgresClient connects to Postgres and migrates the job table.
// Returns nil when no host is configured; the repository then falls back to
// the in-memory job store.
func InitPostgresClient(cfg *config.EnvConfig) *PostgresClient {
	if cfg.Postgres.Host == "" {
		return nil
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.Postgres.Host,
		cfg.Postgres.Username,
		cfg.Postgres.Password,
		cfg.Postgres.Database,
		cfg.Postgres.Port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Postgres connection failed: %v", err)
	}

	if err := db.AutoMigrate(&entity.Job{}); err != nil {
		log.Fatalf("Postgres migration failed: %v", err)
	}

	log.Println("Connected to Postgres:", cfg.Postgres.Host+":"+cfg.Postgres.Port)

	return &PostgresClient{DB: db}
}
