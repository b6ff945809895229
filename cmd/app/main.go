package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"facecam/internal/config"
	"facecam/internal/media"
	"facecam/pkg/inference"
	"facecam/pkg/log"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.NewLogger().Fatalf("Error loading .env file: %v", err)
	}
	logger := log.NewLogger()

	validator := config.NewValidator()
	env, err := config.LoadEnv(validator)
	if err != nil {
		logger.Fatal(err)
	}

	fiberApp := config.NewFiber(logger)
	inferenceClient := inference.New(env.InferenceURL, logger)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithEnv(env),
		config.WithValidator(validator),
		config.WithMiddleware(),
		config.WithUtils(),
		config.WithInferenceClient(inferenceClient),
		config.WithModelStore(),
		config.WithFaceEngine(),
		config.WithWebcam(media.NewPionProvider()),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.InitializeModels(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
