package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/notify"
	"github.com/radieske/sports-trade-engine/internal/shared/metrics"
	"github.com/radieske/sports-trade-engine/internal/trade-service/lock"
	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
)

const publishTimeout = 2 * time.Second

// Options controla transações, tentativas e notificações
type Options struct {
	TxTimeout    time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	DetachGrace  time.Duration
}

func (o Options) withDefaults() Options {
	if o.TxTimeout <= 0 {
		o.TxTimeout = 5 * time.Second
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	if o.DetachGrace <= 0 {
		o.DetachGrace = 2 * time.Second
	}
	return o
}

// Engine aceita apostas e liquida eventos. Lê eventos mas nunca muda status.
type Engine struct {
	db      *sql.DB
	ledger  *repo.Ledger
	events  *repo.EventStore
	stakes  *repo.StakeStore
	bus     notify.Bus
	locker  lock.Locker
	metrics *metrics.Trade
	log     *zap.Logger
	opts    Options

	// afterRead roda entre as leituras e as escritas de cada tentativa; só testes o definem
	afterRead func(op string, tx *sql.Tx)
}

func New(conn *sql.DB, bus notify.Bus, locker lock.Locker, m *metrics.Trade, log *zap.Logger, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		db:      conn,
		ledger:  repo.NewLedger(),
		events:  repo.NewEventStore(),
		stakes:  repo.NewStakeStore(),
		bus:     bus,
		locker:  locker,
		metrics: m,
		log:     log,
		opts:    opts.withDefaults(),
	}
}

// retry executa fn até MaxRetries vezes enquanto ela devolver errRetry,
// com espera linear entre as tentativas
func (e *Engine) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < e.opts.MaxRetries; attempt++ {
		if err = fn(); err != errRetry {
			return err
		}
		e.metrics.Retried(op)
		e.log.Debug("transaction conflict, retrying", zap.String("op", op), zap.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.opts.RetryBackoff * time.Duration(attempt+1)):
		}
	}
	return err
}

// notify publica fora da transação; falhas só são logadas e contadas
func (e *Engine) notify(ctx context.Context, topic string, msg any) {
	if e.bus == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.bus.Publish(pctx, topic, msg); err != nil {
		e.metrics.NotifyFailed()
		e.log.Warn("notification publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (e *Engine) observe(op string, start time.Time) {
	e.metrics.ObserveTx(op, time.Since(start).Seconds())
}

func (e *Engine) interleave(op string, tx *sql.Tx) {
	if e.afterRead != nil {
		e.afterRead(op, tx)
	}
}

// moneyScale é a escala das colunas NUMERIC de saldo e aposta
const moneyScale = 4

func positive(d decimal.Decimal) bool { return d.GreaterThan(decimal.Zero) }

// representable diz se d cabe na escala monetária sem arredondar
func representable(d decimal.Decimal) bool { return d.Equal(d.Round(moneyScale)) }
