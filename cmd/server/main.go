package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sheetlens/internal/capture"
	"sheetlens/internal/classifier"
	_ "sheetlens/internal/classifier/claude"
	_ "sheetlens/internal/classifier/gemini"
	_ "sheetlens/internal/classifier/openai"
	"sheetlens/internal/config"
	"sheetlens/internal/handler"
	"sheetlens/internal/port"
	"sheetlens/internal/router"
	"sheetlens/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize the model client chain
	client, err := classifier.BuildChain(&cfg.Classifier)
	if err != nil {
		return fmt.Errorf("failed to build model client: %w", err)
	}

	// Initialize sheet capture (optional)
	var capturer port.SheetCapturer
	if cfg.Capture.Enabled {
		capturer = capture.New(&cfg.Capture)
	}

	// Initialize services
	analysisSvc := service.NewAnalysisService(client, capturer, &cfg.Classifier, &cfg.Upload)

	// Initialize handlers
	analysisH := handler.NewAnalysisHandler(analysisSvc)
	healthH := handler.NewHealthHandler(&cfg.Capture)

	// Setup router
	r := router.Setup(analysisH, healthH, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Printf("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}
