package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"notes-bot/internal/bot"
	"notes-bot/internal/config"
	"notes-bot/internal/db"
	"notes-bot/internal/metrics"
	"notes-bot/internal/notes"
	"notes-bot/internal/permission"
	"notes-bot/internal/store"
	"notes-bot/internal/transport"
)

func main() {
	config.LoadConfig("config.yaml")

	if err := db.Init(config.Conf.DatabasePath); err != nil {
		log.Fatal("DB init failed:", err)
	}

	st := store.New(db.DB)
	if err := st.Migrate(); err != nil {
		log.Fatal("DB migration failed:", err)
	}
	if err := db.DB.AutoMigrate(&metrics.InteractionSnapshot{}); err != nil {
		log.Fatal("Metrics migration failed:", err)
	}

	resolver := permission.NewResolver(st)
	rest := transport.NewClient()
	orchestrator := notes.New(st, resolver, rest)
	dispatcher := bot.NewDispatcher(orchestrator, st, resolver, rest)

	metricsService := metrics.NewService()
	metricsService.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway := transport.NewGateway(rest, dispatcher.Handle)
	log.Println("Connecting to gateway...")
	if err := gateway.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Gateway stopped: %v", err)
	}

	metricsService.Stop()
}
