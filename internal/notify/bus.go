// Package notify entrega notificações por tópico (eventId) aos assinantes
// conectados. Hub atende uma instância; RedisBus replica entre instâncias.
package notify

import (
	"context"
	"errors"
)

var ErrTopicSealed = errors.New("topic sealed")

// Subscriber recebe payloads JSON já serializados
type Subscriber interface {
	ID() string
	Deliver(payload []byte) error
}

// Bus é o contrato usado pelo trade engine e pelo processador de eventos.
// Publish é best effort; Seal impede novas assinaturas no tópico e
// DetachAll remove os assinantes atuais.
type Bus interface {
	Publish(ctx context.Context, topic string, msg any) error
	Subscribe(topic string, sub Subscriber) error
	Unsubscribe(topic string, sub Subscriber)
	Seal(ctx context.Context, topic string) error
	DetachAll(ctx context.Context, topic string) error
}
