package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/brinegold/jarvis-settlement/internal/container"
	httpserver "github.com/brinegold/jarvis-settlement/internal/presentation/http"
	"github.com/brinegold/jarvis-settlement/pkg/logger"
)

func init() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded, using environment variables")
	}
}

func main() {
	logger.InitGlobalLogger()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()

	ct, err := container.NewContainer(context.Background(), zapLogger)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to initialize application")
	}

	ct.Notifier.SendOrLog("Settlement server start")

	if ct.Config.Settlement.EnableSweeper {
		if err := ct.Sweeper.Start(); err != nil {
			logger.GetLogger().WithError(err).Fatal("Failed to start settlement sweeper")
		}
	}

	server := httpserver.NewServer(ct)
	if err := server.Start(); err != nil {
		logger.GetLogger().WithError(err).Fatal("Server stopped with error")
	}
}
