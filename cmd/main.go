package main

import (
	"anonrelay/backend/internal/api/handler"
	"anonrelay/backend/internal/config"
	"anonrelay/backend/internal/ledger"
	"anonrelay/backend/internal/localization"
	"anonrelay/backend/internal/relay"
	"anonrelay/backend/internal/session"
	"anonrelay/backend/internal/storage"
	"anonrelay/backend/internal/telegram"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func setupSessions(ctx context.Context, cfg *config.Config) session.Store {
	if cfg.RedisAddr == "" {
		log.Println("INFO: Sessions kept in memory")
		return session.NewMemoryStore()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}
	log.Printf("INFO: Sessions kept in Redis at %s", cfg.RedisAddr)
	return session.NewRedisStore(rdb, cfg.SessionTTL)
}

func main() {
	log.Println("Starting anonymous relay bot...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.BotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}
	operators := relay.Operators(cfg.Operators())
	if len(operators) == 0 {
		log.Println("WARN: No ADMIN_ID/ADMIN_IDS configured, submissions will only be logged")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage, ledger, sessions
	store, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()
	l := ledger.New(store)
	sessions := setupSessions(ctx, cfg)

	// 2. Metrics and maintenance gate
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := relay.NewMetrics(reg)
	gate, err := relay.NewGate(ctx, store, cfg.MaintenanceDefault, metrics)
	if err != nil {
		log.Fatalf("Failed to load maintenance flag: %v", err)
	}

	// 3. Telegram and the relay
	localizer, err := localization.NewDefault(cfg.Language)
	if err != nil {
		log.Fatalf("Failed to create localizer: %v", err)
	}
	bot, err := telegram.NewBotAPI(cfg.BotToken, cfg.BotDebug, cfg.SendTimeout)
	if err != nil {
		log.Fatalf("Failed to start the Telegram bot: %v", err)
	}
	svc := relay.NewService(relay.Deps{
		Sessions:  sessions,
		Ledger:    l,
		Gate:      gate,
		Transport: telegram.NewSender(bot),
		Texts:     localizer,
		Operators: operators,
		Language:  cfg.Language,
		Metrics:   metrics,
	})
	botService := telegram.NewBotService(bot, svc, localizer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		botService.Run(ctx)
	}()

	// 4. Operator HTTP API
	r := gin.Default()
	h := handler.NewHandler(l, gate, operators, handler.NewAuth(cfg.JWTSecret))
	h.Register(r, reg)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP shutdown: %v", err)
	}
	<-done
}
