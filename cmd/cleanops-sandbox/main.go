package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cleanops-client/internal/handler"
	"github.com/noah-isme/cleanops-client/internal/sandbox"
	"github.com/noah-isme/cleanops-client/pkg/config"
	"github.com/noah-isme/cleanops-client/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	backend := sandbox.New(sandbox.Config{
		JWTSecret:     cfg.Sandbox.JWTSecret,
		JWTExpiration: cfg.Sandbox.JWTExpiration,
	}, nil, logr)
	seed, err := backend.Seed(cfg.Sandbox.SeedPassword)
	if err != nil {
		logr.Sugar().Fatalw("failed to seed sandbox", "error", err)
	}
	logr.Sugar().Infow("sandbox seeded",
		"admin", seed.Admin.Email,
		"staff", seed.Staff.Email,
		"supervisor", seed.Supervisor.Email,
		"active_period", seed.Active.Name,
	)

	r := handler.NewSandboxRouter(backend, handler.SandboxOptions{
		Prefix:         cfg.API.Prefix,
		AllowedOrigins: cfg.Sandbox.AllowedOrigins,
		LoginPerMinute: 5,
		Logger:         logr,
	})

	addr := fmt.Sprintf(":%d", cfg.Sandbox.Port)
	logr.Sugar().Infow("sandbox starting", "addr", addr, "env", cfg.Env, "prefix", cfg.API.Prefix)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("sandbox failed", "error", err)
	}
}
