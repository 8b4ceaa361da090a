package publisher

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/shared/kafka"
	"github.com/radieske/sports-trade-engine/pkg/contracts/events"
)

// KafkaPublisher envia snapshots de partidas para o tópico do feed
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(brokers, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: kafka.NewWriter(brokers, topic), log: log}
}

// Publish usa o EventID como chave: atualizações de uma partida ficam na
// mesma partição e chegam em ordem ao processor
func (p *KafkaPublisher) Publish(ctx context.Context, u events.FeedUpdate) error {
	if err := kafka.WriteJSON(ctx, p.writer, u.EventID, u); err != nil {
		p.log.Error("failed to publish feed update", zap.String("event_id", u.EventID), zap.Error(err))
		return err
	}
	p.log.Debug("published feed update",
		zap.String("event_id", u.EventID), zap.String("kind", u.Kind), zap.Int("version", u.Version))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
