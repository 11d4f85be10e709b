package main

import (
	"context"

	"materials_market/internal/app"
	"materials_market/internal/config"
	"materials_market/internal/handlers"
	"materials_market/internal/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	apiHandler := handlers.NewAPIHandler(a.Orders, a.Workflow, a.Suppliers, a.Ledger, a.Invoices, log)
	router := handlers.NewRouter(apiHandler, cfg.CORSAllowedOrigins)

	// Start server
	log.WithField("port", cfg.ServerPort).WithField("storage", cfg.StorageDriver).Info("Server starting")
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
