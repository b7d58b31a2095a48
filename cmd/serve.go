package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/adapters"
	"github.com/satriahrh/interviewer/internal/api"
	"github.com/satriahrh/interviewer/internal/config"
	"github.com/satriahrh/interviewer/internal/extraction"
	"github.com/satriahrh/interviewer/internal/gedcomx"
	"github.com/satriahrh/interviewer/internal/websocket"
	"github.com/satriahrh/interviewer/usecase"
)

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the interview server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (default ./interviewer.yaml if present)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.ConfigFile != "" {
		logger.Info("Using config file", zap.String("path", cfg.ConfigFile))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	p, err := newProviders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	// Initialize usecase services
	normalizer := gedcomx.NewNormalizer()
	chatService := usecase.NewChatService(p.llm, logger)
	voiceService := usecase.NewVoiceService(p.stt, p.tts, logger)

	publisher := &hubPublisher{}
	interviewService := usecase.NewInterviewService(
		adapters.NewMemoryInterviewRepository(),
		chatService,
		voiceService,
		extraction.NewExtractor(p.llm, logger),
		normalizer,
		publisher,
		logger,
	)

	// Initialize WebSocket hub with the interview service
	hub := websocket.NewHub(interviewService, cfg.ClientOrigins, logger)
	publisher.hub = hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	cleanupService := usecase.NewInterviewCleanupService(interviewService, cfg.IdleTimeout, cfg.CleanupInterval, logger)
	cleanupService.Start()
	defer cleanupService.Stop()

	// Initialize API routes
	e := api.NewServer(cfg.ClientOrigins, logger)
	api.InitRoutes(e, api.NewHandler(interviewService, chatService, voiceService, normalizer, hub, logger))

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("llm", cfg.LLMProvider),
		zap.String("stt", cfg.STTProvider),
		zap.String("tts", cfg.TTSProvider))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
