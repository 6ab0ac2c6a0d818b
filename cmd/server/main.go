package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatrelay/ai-chat-relay/internal/api"
	"github.com/chatrelay/ai-chat-relay/internal/config"
	"github.com/chatrelay/ai-chat-relay/internal/core"
	"github.com/chatrelay/ai-chat-relay/internal/store"
	"github.com/chatrelay/ai-chat-relay/internal/streamchat"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "Create or update the database schema and exit")
	flag.Parse()

	if err := run(*migrateOnly); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(migrateOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	dbStore, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer dbStore.Close()

	if migrateOnly {
		slog.Info("schema is up to date", "database", cfg.DatabaseURL)
		return nil
	}

	ctx := context.Background()

	streamClient, err := streamchat.New(cfg.StreamAPIKey, cfg.StreamAPISecret)
	if err != nil {
		return fmt.Errorf("create stream client: %w", err)
	}
	if err := streamClient.EnsureBot(ctx); err != nil {
		return fmt.Errorf("ensure bot user: %w", err)
	}

	var completer core.Completer
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		gemini, err := core.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.CompletionModel)
		if err != nil {
			return fmt.Errorf("create gemini completer: %w", err)
		}
		defer gemini.Close()
		completer = gemini
	default:
		completer = core.NewDeepSeekCompleter(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.CompletionModel)
	}

	identityService, err := core.NewIdentityService(streamClient, dbStore)
	if err != nil {
		return err
	}
	assembler, err := core.NewConversationAssembler(dbStore, cfg.HistoryWindow)
	if err != nil {
		return err
	}
	chatService, err := core.NewChatService(identityService, assembler, completer, dbStore, streamClient)
	if err != nil {
		return err
	}

	apiHandler, err := api.NewAPIHandler(identityService, chatService)
	if err != nil {
		return err
	}
	router := api.NewRouter(apiHandler, cfg.CORSOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // completion calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", serverAddr, "provider", cfg.LLMProvider, "model", cfg.CompletionModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", serverAddr, err)
		}
		return nil
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server exited gracefully")
	return nil
}
