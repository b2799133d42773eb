package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clearwm/clearwm-service/config"
	"github.com/clearwm/clearwm-service/consumer/worker"
	"github.com/clearwm/clearwm-service/http/controller"
	routes "github.com/clearwm/clearwm-service/http/route"
	infraPkg "github.com/clearwm/clearwm-service/infra"
	"github.com/clearwm/clearwm-service/processor"
	"github.com/clearwm/clearwm-service/repository"
	"github.com/clearwm/clearwm-service/storage"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	backend := storage.NewBackend(cfg.EnvConfig, infra.Minio)

	runner, err := processor.NewCommandRunner(cfg.EnvConfig.Processor.Command, cfg.EnvConfig.Processor.Timeout)
	if err != nil {
		log.Fatalf("Failed to initialize processor: %v", err)
	}

	cleaner, err := worker.NewCleaner(cfg.EnvConfig, infra.Logger, infra.Redis, repo.JobRepo, backend, runner)
	if err != nil {
		log.Fatalf("Failed to initialize worker: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cleaner.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	ctrl := controller.NewController(cfg, infra, repo, cleaner)
	router := routes.SetupRouter(ctrl)

	srv := &http.Server{
		Addr:    ":" + cfg.EnvConfig.Server.Port,
		Handler: router,
	}

	go func() {
		log.Println("HTTP server started on :" + cfg.EnvConfig.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	infra.Telemetry.Shutdown(shutdownCtx)

	log.Println("Server exited properly")
}
