package controller

import (
	"github.com/clearwm/clearwm-service/config"
	"github.com/clearwm/clearwm-service/consumer/worker"
	"github.com/clearwm/clearwm-service/infra"
	"github.com/clearwm/clearwm-service/repository"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Worker     *worker.Cleaner
}

func NewController(cfg *config.Config, infra *infra.Infra, repo *repository.Repository, cleaner *worker.Cleaner) *Controller {
	return &Controller{
		Config:     cfg,
		Infra:      infra,
		Repository: repo,
		Worker:     cleaner,
	}
}
