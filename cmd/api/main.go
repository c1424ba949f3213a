package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jklepek/case-study/internal/catalog"
	"github.com/jklepek/case-study/internal/config"
	"github.com/jklepek/case-study/internal/httpx"
	kafkax "github.com/jklepek/case-study/internal/kafka"
	"github.com/jklepek/case-study/internal/orders"
	"github.com/jklepek/case-study/internal/postgres"
	"github.com/jklepek/case-study/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.InitSchema(ctx, db); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)

	// Lifecycle engine & catalog
	engine := &orders.Service{
		DB:                db,
		Store:             orders.Store{},
		Ledger:            orders.Ledger{},
		Cache:             rdb,
		OrderTTL:          cfg.OrderTTL,
		ProducerCreated:   pCreated,
		ProducerPaid:      pPaid,
		ProducerCancelled: pCancelled,
		ServiceName:       cfg.ServiceName,
	}
	products := &catalog.Repo{DB: db}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Engine: engine, Redis: rdb}
	oh.Register(router)
	ph := &httpx.ProductsHandler{Catalog: products}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pCreated, pPaid, pCancelled} {
		p.Close()
	}
	for _, p := range []*kafkax.Producer{pCreated, pPaid, pCancelled} {
		p.WaitClosed()
	}
	cancel()
}
