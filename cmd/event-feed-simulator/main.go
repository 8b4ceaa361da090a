package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/event-feed/publisher"
	"github.com/radieske/sports-trade-engine/internal/event-feed/simulator"
	"github.com/radieske/sports-trade-engine/internal/shared/config"
	"github.com/radieske/sports-trade-engine/internal/shared/kafka"
	"github.com/radieske/sports-trade-engine/internal/shared/logger"
	"github.com/radieske/sports-trade-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load("event-feed-simulator")
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Em local/dev o tópico é criado no boot; em prod vem da infraestrutura
	if cfg.Env == "local" || cfg.Env == "dev" {
		tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopic(tctx, cfg.KafkaBrokers, cfg.TopicEventFeed, 3); err != nil {
			log.Warn("ensure topic failed", zap.String("topic", cfg.TopicEventFeed), zap.Error(err))
		}
		if err := kafka.EnsureTopic(tctx, cfg.KafkaBrokers, cfg.TopicEventFeedDLQ, 1); err != nil {
			log.Warn("ensure topic failed", zap.String("topic", cfg.TopicEventFeedDLQ), zap.Error(err))
		}
		cancel()
	}

	pub := publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicEventFeed, log)
	defer pub.Close()

	sim := simulator.New(pub, log, simulator.NewMetrics(prometheus.DefaultRegisterer), simulator.Options{
		Tick:          cfg.FeedTick,
		NewEventEvery: cfg.FeedNewEventEvery,
		MaxEvents:     cfg.FeedMaxEvents,
	}, rand.New(rand.NewSource(time.Now().UnixNano())))

	// catálogo inicial para o trade-service ter o que listar logo no boot
	sim.NewEvent(ctx)
	go sim.Run(ctx)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           sim.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("event-feed-simulator listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
