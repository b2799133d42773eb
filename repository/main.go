package repository

import (
	"context"

	"github.com/clearwm/clearwm-service/infra"
)

type Repository struct {
	JobRepo JobStore
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	var store JobStore
	if infra.Postgres != nil {
		store = NewJobRepository(infra.Postgres.DB)
	} else {
		infra.Logger.WarningWithContextf(context.Background(),
			"[Repository] Postgres not configured, using in-memory job store")
		store = NewMemoryJobRepository()
	}

	repository = &Repository{
		JobRepo: store,
	}
	return repository
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}
