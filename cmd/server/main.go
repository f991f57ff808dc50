package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quillpress/internal/ai"
	"quillpress/internal/api"
	"quillpress/internal/api/handlers"
	"quillpress/internal/api/middleware"
	"quillpress/internal/archive"
	"quillpress/internal/automation"
	"quillpress/internal/config"
	"quillpress/internal/db"
	"quillpress/internal/history"
	"quillpress/internal/webhook"
	"quillpress/internal/wordpress"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] invalid config: %v", err)
	}

	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	authMiddleware, err := middleware.NewAuthMiddleware(db.GetDB())
	if err != nil {
		log.Fatalf("[main] failed to initialize auth: %v", err)
	}

	geminiClient := ai.NewGeminiClient()
	geminiClient.SetModel(cfg.AI.Model)
	if cfg.AI.APIKey != "" {
		geminiClient.SetAPIKey(cfg.AI.APIKey)
	}

	wpClient := wordpress.NewClient()
	historyStore := history.NewStore()

	sender := webhook.NewSender(webhook.Config{
		RetryCount:  cfg.Webhooks.RetryCount,
		RetryDelay:  cfg.Webhooks.RetryDelay,
		Timeout:     cfg.Webhooks.Timeout,
		WorkerCount: cfg.Webhooks.WorkerCount,
	})
	sender.Start()
	defer sender.Stop()

	archiver, err := archive.NewArchiver(db.GetDB(), archive.Config{
		ArchivePath: cfg.Database.ArchivePath,
		ArchiveDays: cfg.Database.ArchiveDays,
	})
	if err != nil {
		log.Fatalf("[main] failed to initialize archiver: %v", err)
	}
	archiver.Start()
	defer archiver.Stop()

	engine := automation.NewEngine(geminiClient, wpClient, historyStore,
		automation.WithEventSink(sender))

	aiHandler := handlers.NewAIHandler(geminiClient, wpClient, historyStore)
	if err := aiHandler.LoadAPIKey(context.Background()); err != nil {
		log.Printf("[main] could not restore saved API key: %v", err)
	}

	router := api.NewRouter(api.Handlers{
		Auth:       authMiddleware,
		AI:         aiHandler,
		WordPress:  handlers.NewWordPressHandler(wpClient),
		Automation: handlers.NewAutomationHandler(engine),
		History:    handlers.NewHistoryHandler(historyStore, archiver),
		Webhooks:   handlers.NewWebhookHandler(),
		Settings:   handlers.NewSettingsHandler(cfg),
		Gsc:        handlers.NewGscHandler(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[main] shutting down")
	engine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}
}
