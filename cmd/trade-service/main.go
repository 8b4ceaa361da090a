package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/notify"
	sharedcache "github.com/radieske/sports-trade-engine/internal/shared/cache"
	"github.com/radieske/sports-trade-engine/internal/shared/config"
	"github.com/radieske/sports-trade-engine/internal/shared/db"
	"github.com/radieske/sports-trade-engine/internal/shared/logger"
	"github.com/radieske/sports-trade-engine/internal/shared/metrics"
	"github.com/radieske/sports-trade-engine/internal/trade-service/engine"
	"github.com/radieske/sports-trade-engine/internal/trade-service/feed"
	httpapi "github.com/radieske/sports-trade-engine/internal/trade-service/http"
	"github.com/radieske/sports-trade-engine/internal/trade-service/lock"
)

func main() {
	cfg := config.Load("trade-service")
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event Store / Ledger
	conn, err := db.Connect(cfg.DBDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn, cfg.DBDriver); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	checks := []metrics.Check{{Name: "db", Fn: conn.PingContext}}

	// Redis é opcional: sem ele o serviço roda como instância única
	var (
		bus    notify.Bus
		locker lock.Locker
	)
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, running single-instance", zap.Error(err))
		bus = notify.NewHub(log)
		locker = lock.NewLocalLocker(cfg.SettleLockTTL)
	} else {
		defer rdb.Close()
		rbus := notify.NewRedisBus(rdb, cfg.RedisPubSubChannel, notify.NewHub(log), log)
		if err := rbus.Start(ctx); err != nil {
			log.Fatal("notification bus", zap.Error(err))
		}
		bus = rbus
		locker = lock.NewRedisLocker(rdb, cfg.SettleLockTTL, cfg.RetryBackoff, cfg.MaxRetries)
		checks = append(checks, metrics.Check{Name: "redis", Fn: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	tm := metrics.NewTrade(prometheus.DefaultRegisterer)
	eng := engine.New(conn, bus, locker, tm, log, engine.Options{
		TxTimeout:    cfg.TxTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		DetachGrace:  cfg.DetachGrace,
	})
	upd := feed.NewUpdater(conn, bus, tm, log, cfg.TxTimeout)

	if err := seedAccounts(ctx, eng, cfg.DemoAccounts, log); err != nil {
		log.Fatal("demo accounts", zap.Error(err))
	}
	if cfg.Env == "local" {
		logDemoTokens(cfg, log)
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	ws := notify.NewWSHandler(bus, nil, log)
	api := httpapi.NewServer(log, eng, upd, feed.NewClient(cfg.SimulatorURL), ws, cfg.JWTSecret)
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("trade-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}

// logDemoTokens imprime tokens de teste; em produção o JWT vem do serviço de identidade
func logDemoTokens(cfg config.Config, log *zap.Logger) {
	secret := []byte(cfg.JWTSecret)
	if tok, err := httpapi.IssueToken(secret, "operator", httpapi.RoleOperator, 24*time.Hour); err == nil {
		log.Info("demo operator token", zap.String("token", tok))
	}
	accounts, _ := parseAccounts(cfg.DemoAccounts)
	for user := range accounts {
		if tok, err := httpapi.IssueToken(secret, user, "", 24*time.Hour); err == nil {
			log.Info("demo user token", zap.String("user_id", user), zap.String("token", tok))
		}
	}
}
