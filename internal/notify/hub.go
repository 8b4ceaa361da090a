package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// mensagens enfileiradas por assinante antes de ele ser considerado lento
	mailboxSize = 64
	// por quanto tempo um tópico selado recusa novas assinaturas
	sealTTL = time.Hour
)

var errSlowSubscriber = errors.New("subscriber mailbox full")

// mailbox isola cada assinante: Publish só enfileira e uma goroutine por
// assinante faz a entrega, na ordem de publicação
type mailbox struct {
	sub  Subscriber
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func (m *mailbox) close() { m.once.Do(func() { close(m.done) }) }

// Hub mantém as assinaturas locais: topic -> subscriberID -> mailbox
type Hub struct {
	log *zap.Logger
	now func() time.Time

	mu     sync.RWMutex
	subs   map[string]map[string]*mailbox
	sealed map[string]time.Time
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:    log,
		now:    time.Now,
		subs:   make(map[string]map[string]*mailbox),
		sealed: make(map[string]time.Time),
	}
}

func (h *Hub) Subscribe(topic string, sub Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sealedLocked(topic) {
		return fmt.Errorf("subscribe %s: %w", topic, ErrTopicSealed)
	}
	set, ok := h.subs[topic]
	if !ok {
		set = make(map[string]*mailbox)
		h.subs[topic] = set
	}
	if _, ok := set[sub.ID()]; ok {
		return nil
	}
	mb := &mailbox{sub: sub, ch: make(chan []byte, mailboxSize), done: make(chan struct{})}
	set[sub.ID()] = mb
	go h.drain(topic, mb)
	return nil
}

func (h *Hub) drain(topic string, mb *mailbox) {
	for {
		select {
		case <-mb.done:
			return
		case p := <-mb.ch:
			if err := mb.sub.Deliver(p); err != nil {
				h.drop(topic, mb, err)
				return
			}
		}
	}
}

func (h *Hub) Unsubscribe(topic string, sub Subscriber) {
	h.mu.Lock()
	mb := h.removeLocked(topic, sub.ID())
	h.mu.Unlock()
	if mb != nil {
		mb.close()
	}
}

func (h *Hub) removeLocked(topic, id string) *mailbox {
	set, ok := h.subs[topic]
	if !ok {
		return nil
	}
	mb := set[id]
	delete(set, id)
	if len(set) == 0 {
		delete(h.subs, topic)
	}
	return mb
}

// drop remove o assinante só se a mailbox ainda for a registrada
func (h *Hub) drop(topic string, mb *mailbox, cause error) {
	h.log.Warn("dropping subscriber",
		zap.String("topic", topic), zap.String("subscriber", mb.sub.ID()), zap.Error(cause))
	h.mu.Lock()
	if cur, ok := h.subs[topic][mb.sub.ID()]; ok && cur == mb {
		h.removeLocked(topic, mb.sub.ID())
	}
	h.mu.Unlock()
	mb.close()
}

// Publish serializa msg e enfileira para cada assinante do tópico; não espera a entrega.
// Assinantes que falham ou acumulam mailboxSize mensagens são removidos.
func (h *Hub) Publish(_ context.Context, topic string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	h.Broadcast(topic, b)
	return nil
}

// Broadcast enfileira um payload já serializado
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.RLock()
	targets := make([]*mailbox, 0, len(h.subs[topic]))
	for _, mb := range h.subs[topic] {
		targets = append(targets, mb)
	}
	h.mu.RUnlock()

	for _, mb := range targets {
		select {
		case mb.ch <- payload:
		default:
			h.drop(topic, mb, errSlowSubscriber)
		}
	}
}

// Seal recusa novas assinaturas por sealTTL; selos vencidos são varridos aqui
func (h *Hub) Seal(_ context.Context, topic string) error {
	h.mu.Lock()
	now := h.now()
	for t, at := range h.sealed {
		if now.Sub(at) >= sealTTL {
			delete(h.sealed, t)
		}
	}
	h.sealed[topic] = now
	h.mu.Unlock()
	return nil
}

func (h *Hub) DetachAll(_ context.Context, topic string) error {
	h.mu.Lock()
	set := h.subs[topic]
	delete(h.subs, topic)
	h.mu.Unlock()
	for _, mb := range set {
		mb.close()
	}
	h.log.Debug("detached subscribers", zap.String("topic", topic), zap.Int("count", len(set)))
	return nil
}

func (h *Hub) sealedLocked(topic string) bool {
	at, ok := h.sealed[topic]
	return ok && h.now().Sub(at) < sealTTL
}

// Sealed indica se o tópico está selado
func (h *Hub) Sealed(topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sealedLocked(topic)
}

// Count retorna quantos assinantes o tópico tem nesta instância
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
