package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alenapavlenkko/expireassist/internal/api"
	"github.com/alenapavlenkko/expireassist/internal/app"
	"github.com/alenapavlenkko/expireassist/internal/config"
	"github.com/alenapavlenkko/expireassist/internal/realtime"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

func main() {
	cfg, envFound, err := config.Load()
	utils.Log = utils.NewLogger(cfg.AppEnv)
	defer utils.Log.Sync()

	if !envFound {
		utils.Log.Info("No .env file found, reading environment variables")
	}
	if err != nil {
		utils.Log.Error("Invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(utils.Log)

	a, err := app.New(ctx, cfg, hub)
	if err != nil {
		utils.Log.Error("Failed to start", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers := api.NewHandlers(a.Catalog, a.Inventory, a.Meals, a.Export, hub)
	router := api.NewRouter(handlers, api.Options{
		CORSOrigins: cfg.CORSOrigins,
		PhotosDir:   cfg.PhotosDir,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(utils.Log.Zap().Named("http")),
	}

	go func() {
		utils.Log.Info("API server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.Error("API server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Log.Error("Shutdown failed", zap.Error(err))
	}
	utils.Log.Info("API server stopped")
}
