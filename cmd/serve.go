package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/adapters/blobstore"
	"github.com/satriahrh/learnvoice/internal/api"
	"github.com/satriahrh/learnvoice/internal/websocket"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return err
	}

	hub, err := websocket.NewHub(websocket.HubConfig{
		Resolver:       a.service,
		Concurrency:    cfg.Preload.Concurrency,
		AllowedOrigins: cfg.Server.CORSOrigins,
	}, logger)
	if err != nil {
		a.close(ctx)
		return err
	}
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
	}))

	api.InitRoutes(e, api.Dependencies{
		Resolver:          a.service,
		Warmer:            a.warmer,
		Store:             a.store,
		Signer:            a.signer,
		Hub:               hub,
		StorageConfigured: blobstore.Configured(a.store),
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", addr), zap.String("publicBaseURL", cfg.Server.PublicBaseURL))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	stopHub()
	if err := a.warmer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Warm jobs did not stop in time", zap.Error(err))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := a.close(shutdownCtx); err != nil {
		logger.Warn("Failed to release adapters", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}
