package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	kindMessage = "message"
	kindSeal    = "seal"
	kindDetach  = "detach"
)

// envelope trafega no canal Redis; cada instância aplica no seu Hub local
type envelope struct {
	Kind    string          `json:"kind"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RedisBus replica publicações, selos e desconexões entre instâncias via
// Redis Pub/Sub. As assinaturas continuam locais, no Hub.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	local   *Hub
	log     *zap.Logger
}

func NewRedisBus(rdb *redis.Client, channel string, local *Hub, log *zap.Logger) *RedisBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBus{rdb: rdb, channel: channel, local: local, log: log}
}

// Local retorna o Hub desta instância
func (b *RedisBus) Local() *Hub { return b.local }

func (b *RedisBus) send(ctx context.Context, env envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", env.Kind, err)
	}
	return nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return b.send(ctx, envelope{Kind: kindMessage, Topic: topic, Payload: payload})
}

func (b *RedisBus) Subscribe(topic string, sub Subscriber) error { return b.local.Subscribe(topic, sub) }

func (b *RedisBus) Unsubscribe(topic string, sub Subscriber) { b.local.Unsubscribe(topic, sub) }

// Seal vale localmente na hora; as outras instâncias recebem pelo canal
func (b *RedisBus) Seal(ctx context.Context, topic string) error {
	_ = b.local.Seal(ctx, topic)
	return b.send(ctx, envelope{Kind: kindSeal, Topic: topic})
}

func (b *RedisBus) DetachAll(ctx context.Context, topic string) error {
	_ = b.local.DetachAll(ctx, topic)
	return b.send(ctx, envelope{Kind: kindDetach, Topic: topic})
}

// Start assina o canal e só retorna depois da confirmação do Redis.
// O laço de leitura roda até ctx terminar.
func (b *RedisBus) Start(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.apply(ctx, []byte(msg.Payload))
			}
		}
	}()
	b.log.Info("notification bus subscribed", zap.String("channel", b.channel))
	return nil
}

func (b *RedisBus) apply(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.log.Warn("invalid bus envelope", zap.Error(err))
		return
	}
	switch env.Kind {
	case kindMessage:
		b.local.Broadcast(env.Topic, env.Payload)
	case kindSeal:
		_ = b.local.Seal(ctx, env.Topic)
	case kindDetach:
		_ = b.local.DetachAll(ctx, env.Topic)
	default:
		b.log.Warn("unknown bus envelope kind", zap.String("kind", env.Kind))
	}
}
