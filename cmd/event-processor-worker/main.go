package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/event-processor/cache"
	"github.com/radieske/sports-trade-engine/internal/event-processor/consumer"
	"github.com/radieske/sports-trade-engine/internal/notify"
	sharedcache "github.com/radieske/sports-trade-engine/internal/shared/cache"
	"github.com/radieske/sports-trade-engine/internal/shared/config"
	"github.com/radieske/sports-trade-engine/internal/shared/db"
	"github.com/radieske/sports-trade-engine/internal/shared/kafka"
	"github.com/radieske/sports-trade-engine/internal/shared/logger"
	"github.com/radieske/sports-trade-engine/internal/shared/metrics"
	"github.com/radieske/sports-trade-engine/internal/trade-service/feed"
)

const consumerGroup = "event-processor"

func main() {
	cfg := config.Load("event-processor-worker")
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg.DBDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn, cfg.DBDriver); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis leva o eventUpdate até os trade-service que têm os WebSockets
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	bus := notify.NewRedisBus(rdb, cfg.RedisPubSubChannel, notify.NewHub(log), log)

	tm := metrics.NewTrade(prometheus.DefaultRegisterer)
	upd := feed.NewUpdater(conn, bus, tm, log, cfg.TxTimeout)

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicEventFeed, consumerGroup)
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEventFeedDLQ)
	defer dlq.Close()

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Updater:     upd,
		Versions:    cache.NewVersionCache(rdb, 24*time.Hour),
		DLQ:         dlq,
		Metrics:     consumer.NewMetrics(prometheus.DefaultRegisterer),
		MaxAttempts: cfg.MaxRetries,
		Backoff:     500 * time.Millisecond,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log,
		metrics.Check{Name: "db", Fn: conn.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	defer metricsSrv.Close()

	log.Info("event-processor started", zap.String("topic", cfg.TopicEventFeed), zap.String("group", consumerGroup))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("event-processor stopped")
}
