package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/mwasomola/malipo/internal/adapter/handler"
	"github.com/mwasomola/malipo/internal/adapter/middleware"
	"github.com/mwasomola/malipo/internal/adapter/storage"
	"github.com/mwasomola/malipo/internal/core/authorizer"
	"github.com/mwasomola/malipo/internal/core/config"
	"github.com/mwasomola/malipo/internal/core/notifications"
	"github.com/mwasomola/malipo/internal/core/service"
)

func main() {
	// 1. Load Config
	cfg := config.LoadConfig()

	// 2. Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 3. Connect to Database
	dbPool, err := storage.ConnectDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}
	// Closed manually on shutdown, not deferred.

	// 4. Wire the settlement core
	store := storage.NewPostgresStore(dbPool)
	auth := authorizer.New(cfg.AuthorizerURL, cfg.AuthMaxAttempts, cfg.AuthBackoff)
	notifier := notifications.New(cfg.NotifierURL)
	settlement := service.NewSettlement(store, auth, notifier)

	transferHandler := &handler.TransferHandler{Service: settlement}

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	// 6. Routes
	api := app.Group("/v1")
	api.Post("/transfers", middleware.Idempotency(dbPool), transferHandler.CreateTransfer)
	api.Post("/transfers/:id/revert", middleware.Idempotency(dbPool), transferHandler.RevertTransfer)
	api.Get("/transfers", transferHandler.ListTransfers)

	// Listen for OS signals (Ctrl+C, Docker stop)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutting down server...")

	// Finish active requests before closing the pool.
	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	dbPool.Close()
	slog.Info("✅ Server exited successfully")
}
