package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jklepek/case-study/internal/config"
	kafkax "github.com/jklepek/case-study/internal/kafka"
	"github.com/jklepek/case-study/internal/orders"
	"github.com/jklepek/case-study/internal/postgres"
	"github.com/jklepek/case-study/internal/redisx"
)

// Standalone expiry sweeper. Cancellation is idempotent, so any number of
// these may run next to the API instances.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)

	engine := &orders.Service{
		DB:                db,
		Store:             orders.Store{},
		Ledger:            orders.Ledger{},
		Cache:             rdb,
		OrderTTL:          cfg.OrderTTL,
		ProducerCancelled: pCancelled,
		ServiceName:       cfg.ServiceName + "-sweeper",
	}
	sweeper := &orders.Sweeper{Engine: engine, Interval: cfg.SweepInterval}

	go func() {
		log.Printf("sweeper started: interval=%s", cfg.SweepInterval)
		sweeper.Run(ctx)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down sweeper...")

	pCancelled.Close()
	pCancelled.WaitClosed()
	cancel()
}
