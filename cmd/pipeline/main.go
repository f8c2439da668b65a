package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nguyentantai21042004/article-flow/internal/acquisition"
	"github.com/nguyentantai21042004/article-flow/internal/completion"
	"github.com/nguyentantai21042004/article-flow/internal/config"
	"github.com/nguyentantai21042004/article-flow/internal/httpapi"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
	"github.com/nguyentantai21042004/article-flow/internal/output"
	"github.com/nguyentantai21042004/article-flow/internal/pipeline"
	"github.com/nguyentantai21042004/article-flow/internal/prompt"
	"github.com/nguyentantai21042004/article-flow/internal/transcriber"
	"github.com/nguyentantai21042004/article-flow/internal/watcher"
	"github.com/nguyentantai21042004/article-flow/pkg/executor"
	"github.com/panjf2000/ants/v2"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx := context.Background()

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewWithWriter(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	log.Info(ctx, "========================================")
	log.Info(ctx, "Audio to Article Pipeline")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s, CPU Cores: %d", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	log.Info(ctx, "Max Concurrent Runs: %d", cfg.Performance.MaxConcurrent)

	if err := cfg.CheckCredentials(); err != nil {
		log.Error(ctx, "Missing credentials: %v", err)
		os.Exit(1)
	}

	if err := ensureDirectories(cfg); err != nil {
		log.Error(ctx, "Failed to create directories: %v", err)
		os.Exit(1)
	}

	template, err := prompt.Load(cfg.Prompt.TemplatePath)
	if err != nil {
		log.Error(ctx, "Failed to load prompt template: %v", err)
		os.Exit(1)
	}

	// Initialize dependencies
	exec := executor.New()

	tr := newTranscriber(cfg, exec, log)
	client, err := newCompletionClient(cfg, log)
	if err != nil {
		log.Error(ctx, "Failed to create completion client: %v", err)
		os.Exit(1)
	}

	poolSize := cfg.Performance.MaxConcurrent * cfg.Pipeline.ChunkConcurrency
	pool, err := ants.NewPool(poolSize, ants.WithPanicHandler(func(p any) {
		log.Error(context.Background(), "Panic in worker pool: %v", p)
	}))
	if err != nil {
		log.Error(ctx, "Failed to create worker pool: %v", err)
		os.Exit(1)
	}
	defer pool.Release()

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Error(ctx, "Invalid pipeline options: %v", err)
		os.Exit(1)
	}
	pipe, err := pipeline.New(opts, pipeline.Dependencies{
		Acquirer:    acquisition.New(cfg.Downloader, exec, log),
		Transcriber: tr,
		Invoker:     completion.New(client, cfg.Completion.Model, cfg.Completion.Timeout, log),
		Pool:        pool,
	}, template, log)
	if err != nil {
		log.Error(ctx, "Failed to create pipeline: %v", err)
		os.Exit(1)
	}

	writer := output.New(cfg.Paths.Output, cfg.Paths.Archived, log)
	w, err := watcher.New(cfg.Paths.Input, output.InboxHandler(pipe, writer, log), log, watcher.Options{
		MaxConcurrent: cfg.Performance.MaxConcurrent,
	})
	if err != nil {
		log.Error(ctx, "Failed to create watcher: %v", err)
		os.Exit(1)
	}
	defer w.Stop()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := httpapi.New(cfg.Server, pipe, log)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 2)
	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- fmt.Errorf("watcher: %w", err)
		}
	}()
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	log.Info(ctx, "========================================")
	log.Info(ctx, "Pipeline is ready!")
	log.Info(ctx, "Inbox: %s", cfg.Paths.Input)
	log.Info(ctx, "Output: %s", cfg.Paths.Output)
	log.Info(ctx, "HTTP: %s", cfg.Server.Addr)
	log.Info(ctx, "Transcriber: %s, Completion: %s (%s)", cfg.Transcriber.Backend, cfg.Completion.Backend, cfg.Completion.Model)
	log.Info(ctx, "Chunks: %d %s, %d at once", cfg.Pipeline.MaxChunkUnits, cfg.Pipeline.ChunkUnit, cfg.Pipeline.ChunkConcurrency)
	log.Info(ctx, "")
	log.Info(ctx, "Press Ctrl+C to stop")
	log.Info(ctx, "========================================")

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "%v", err)
	}

	// Graceful shutdown
	log.Info(ctx, "Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "HTTP server shutdown: %v", err)
	}

	log.Info(ctx, "Pipeline stopped")
}

func newTranscriber(cfg *config.Config, exec executor.Executor, log logger.Logger) transcriber.Transcriber {
	if cfg.Transcriber.Backend == config.BackendOpenAI {
		return transcriber.NewOpenAI(cfg.Credentials.OpenAIAPIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.TranscriptionModel, cfg.Whisper.Language, log)
	}
	return transcriber.NewWhisperCPP(cfg.Whisper, cfg.FFmpeg, exec, log)
}

func newCompletionClient(cfg *config.Config, log logger.Logger) (completion.Client, error) {
	if cfg.Completion.Backend == config.BackendOpenAI {
		return completion.NewOpenAIClient(cfg.Credentials.OpenAIAPIKey, cfg.OpenAI.BaseURL), nil
	}
	return completion.NewGeminiClient(cfg.Credentials.GeminiAPIKeys, log)
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Input,
		cfg.Paths.Output,
		cfg.Paths.Archived,
		cfg.Paths.Temp,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
