package main

import (
	"context"
	"os"

	_ "github.com/kirinyoku/dirabus/docs"
	"github.com/kirinyoku/dirabus/internal/app"
	"github.com/kirinyoku/dirabus/internal/config"
	"github.com/sirupsen/logrus"
)

// @title Dirabus API
// @version 1.0
// @description Bus ticket reservation backend.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.New()
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	level, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.WithField("log_level", cfg.Server.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create application")
	}

	if err := application.Run(ctx); err != nil {
		logger.WithError(err).Error("application finished with error")
		os.Exit(1)
	}
}
