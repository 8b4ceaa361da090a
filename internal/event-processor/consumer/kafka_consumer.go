package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/event-processor/cache"
	"github.com/radieske/sports-trade-engine/internal/trade-service/feed"
	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
	"github.com/radieske/sports-trade-engine/pkg/contracts/events"
)

// Applier grava o snapshot no Event Store e notifica os assinantes
type Applier interface {
	ApplyFeed(ctx context.Context, upd events.FeedUpdate) (repo.Event, error)
}

// DeadLetter recebe mensagens que não podem ser aplicadas (*kafka.Writer em produção)
type DeadLetter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Processor consome o tópico event_feed e aplica cada snapshot no Event Store.
// O offset só é commitado depois do processamento (at-least-once); reentregas
// são filtradas pela versão guardada em Versions.
type Processor struct {
	Log      *zap.Logger
	Reader   *kafka.Reader
	Updater  Applier
	Versions *cache.VersionCache // opcional
	DLQ      DeadLetter          // opcional
	Metrics  *Metrics

	MaxAttempts int
	Backoff     time.Duration
}

func (p *Processor) defaults() {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	if p.Metrics == nil {
		p.Metrics = NewMetrics(nil)
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = 500 * time.Millisecond
	}
}

// Run inicia o loop principal de consumo até ctx terminar
func (p *Processor) Run(ctx context.Context) error {
	p.defaults()
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.Metrics.Errors.WithLabelValues("read").Inc()
			time.Sleep(p.Backoff)
			continue
		}

		p.Metrics.Consumed.Inc()
		if err := p.Process(ctx, m); err != nil {
			// só chega aqui com ctx cancelado; a mensagem fica sem commit
			return err
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.Metrics.Errors.WithLabelValues("commit").Inc()
		}
	}
}

// Process tenta Handle até MaxAttempts; esgotadas as tentativas a mensagem vai para a DLQ
func (p *Processor) Process(ctx context.Context, m kafka.Message) error {
	p.defaults()
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = p.Handle(ctx, m); err == nil {
			return nil
		}
		p.Log.Warn("apply feed failed",
			zap.String("key", string(m.Key)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < p.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff * time.Duration(attempt)):
			}
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.deadLetter(ctx, m, "apply", err)
	return nil
}

// Handle decodifica e aplica uma mensagem. Só devolve erro quando vale tentar de novo
// (Event Store indisponível); mensagens inválidas vão direto para a DLQ.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	p.defaults()

	var upd events.FeedUpdate
	if err := json.Unmarshal(m.Value, &upd); err != nil {
		p.deadLetter(ctx, m, "decode", err)
		return nil
	}
	if upd.EventID == "" {
		p.deadLetter(ctx, m, "validate", errors.New("missing event_id"))
		return nil
	}

	if p.Versions != nil {
		seen, err := p.Versions.Seen(ctx, upd.EventID, upd.Version)
		if err != nil {
			// cache fora não bloqueia a aplicação
			p.Log.Warn("version cache read failed", zap.Error(err))
			p.Metrics.Errors.WithLabelValues("cache").Inc()
		} else if seen {
			p.Metrics.Skipped.WithLabelValues("stale").Inc()
			p.Log.Debug("stale feed update skipped", zap.String("event_id", upd.EventID), zap.Int("version", upd.Version))
			return nil
		}
	}

	_, err := p.Updater.ApplyFeed(ctx, upd)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrEventCompleted):
		p.Metrics.Skipped.WithLabelValues("completed").Inc()
		p.Log.Info("feed update for completed event ignored", zap.String("event_id", upd.EventID))
		return nil
	case errors.Is(err, repo.ErrInvalidEvent), errors.Is(err, feed.ErrInvalidStatus):
		p.deadLetter(ctx, m, "validate", err)
		return nil
	default:
		p.Metrics.Errors.WithLabelValues("apply").Inc()
		return err
	}

	p.Metrics.Applied.WithLabelValues(upd.Kind).Inc()
	if p.Versions != nil {
		if err := p.Versions.Mark(ctx, upd.EventID, upd.Version); err != nil {
			p.Log.Warn("version cache write failed", zap.Error(err))
			p.Metrics.Errors.WithLabelValues("cache").Inc()
		}
	}
	return nil
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string, cause error) {
	p.Metrics.DeadLettered.Inc()
	p.Log.Warn("feed message dead-lettered",
		zap.String("stage", stage),
		zap.String("key", string(m.Key)),
		zap.Error(cause),
	)
	if p.DLQ == nil {
		return
	}
	msg := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(append([]kafka.Header(nil), m.Headers...),
			kafka.Header{Key: "dlq-stage", Value: []byte(stage)},
			kafka.Header{Key: "dlq-error", Value: []byte(cause.Error())},
		),
		Time: time.Now(),
	}
	if err := p.DLQ.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.Metrics.Errors.WithLabelValues("dlq").Inc()
	}
}
