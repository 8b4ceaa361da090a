// Package simulator gera partidas mock e evolui placares, odds e status,
// publicando cada mudança como snapshot completo no feed.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/pkg/contracts/events"
)

const (
	source      = "event-feed-simulator"
	endChance   = 0.15
	maxSchedule = 24 * time.Hour
)

// Publisher recebe os snapshots (Kafka em produção)
type Publisher interface {
	Publish(ctx context.Context, u events.FeedUpdate) error
}

type match struct {
	sport string
	teams [2]string
	state events.FeedUpdate
}

type Options struct {
	Tick          time.Duration
	NewEventEvery time.Duration
	MaxEvents     int
}

// Simulator mantém o catálogo em memória; o Event Store é alimentado só pelo feed
type Simulator struct {
	pub     Publisher
	log     *zap.Logger
	metrics *Metrics
	opts    Options
	now     func() time.Time

	mu      sync.Mutex
	rng     *rand.Rand
	matches map[string]*match
	order   []string
}

func New(pub Publisher, log *zap.Logger, m *Metrics, opts Options, rng *rand.Rand) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = NewMetrics(nil)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.MaxEvents < 1 {
		opts.MaxEvents = 8
	}
	if opts.Tick <= 0 {
		opts.Tick = 10 * time.Second
	}
	if opts.NewEventEvery <= 0 {
		opts.NewEventEvery = time.Minute
	}
	return &Simulator{
		pub:     pub,
		log:     log,
		metrics: m,
		opts:    opts,
		now:     time.Now,
		rng:     rng,
		matches: make(map[string]*match),
	}
}

// NewEvent cria uma partida upcoming com placar inicial 0-4 e odds derivadas
// do placar, agendada nas próximas 24h, e publica o snapshot "created"
func (s *Simulator) NewEvent(ctx context.Context) events.FeedUpdate {
	s.mu.Lock()
	idx := s.rng.Intn(len(sports))
	pair := teams[idx]
	id := s.freshIDLocked()
	scores := map[string]int{pair[0]: s.rng.Intn(5), pair[1]: s.rng.Intn(5)}
	now := s.now().UTC()

	m := &match{
		sport: sports[idx],
		teams: pair,
		state: events.FeedUpdate{
			Kind:        events.FeedCreated,
			EventID:     id,
			Name:        sports[idx],
			ScheduledAt: now.Add(time.Duration(s.rng.Int63n(int64(maxSchedule)))),
			Scores:      scores,
			Odds:        DynamicOdds(pair[0], pair[1], scores[pair[0]], scores[pair[1]]),
			Status:      "upcoming",
			Version:     1,
			UpdatedAt:   now,
			Source:      source,
		},
	}
	s.matches[id] = m
	s.order = append(s.order, id)
	s.evictLocked()
	snap := snapshot(m.state)
	s.mu.Unlock()

	s.metrics.Generated.Inc()
	s.refreshLive()
	s.publish(ctx, snap)
	return snap
}

func (s *Simulator) freshIDLocked() string {
	for {
		id := fmt.Sprintf("event-%d", s.rng.Intn(1_000_000))
		if _, taken := s.matches[id]; !taken {
			return id
		}
	}
}

// evictLocked mantém o catálogo em MaxEvents, descartando primeiro as encerradas
func (s *Simulator) evictLocked() {
	for len(s.order) > s.opts.MaxEvents {
		victim := 0
		for i, id := range s.order {
			if s.matches[id].state.Status == "completed" {
				victim = i
				break
			}
		}
		delete(s.matches, s.order[victim])
		s.order = append(s.order[:victim], s.order[victim+1:]...)
	}
}

// Tick evolui uma partida não encerrada escolhida ao acaso: passa para
// ongoing se o horário chegou, soma pontos para um dos times, recalcula as
// odds e, com 15% de chance, encerra (empate sorteia o vencedor).
func (s *Simulator) Tick(ctx context.Context) (events.FeedUpdate, bool) {
	s.mu.Lock()
	var live []*match
	for _, id := range s.order {
		if m := s.matches[id]; m.state.Status != "completed" {
			live = append(live, m)
		}
	}
	if len(live) == 0 {
		s.mu.Unlock()
		return events.FeedUpdate{}, false
	}

	m := live[s.rng.Intn(len(live))]
	st := &m.state
	now := s.now().UTC()
	st.Kind = events.FeedScores

	if st.Status == "upcoming" && !now.Before(st.ScheduledAt) {
		st.Status = "ongoing"
		st.Kind = events.FeedStatus
	}

	scoring := m.teams[s.rng.Intn(2)]
	st.Scores[scoring] += Increment(m.sport, s.rng)
	s1, s2 := st.Scores[m.teams[0]], st.Scores[m.teams[1]]
	st.Odds = DynamicOdds(m.teams[0], m.teams[1], s1, s2)

	if s.rng.Float64() < endChance {
		st.Status = "completed"
		st.Kind = events.FeedStatus
		switch {
		case s1 > s2:
			st.Winner = m.teams[0]
		case s2 > s1:
			st.Winner = m.teams[1]
		default:
			st.Winner = m.teams[s.rng.Intn(2)]
		}
	}
	st.Version++
	st.UpdatedAt = now
	snap := snapshot(*st)
	s.mu.Unlock()

	if snap.Status == "completed" {
		s.log.Info("match ended", zap.String("event_id", snap.EventID), zap.String("winner", snap.Winner))
		s.refreshLive()
	}
	s.publish(ctx, snap)
	return snap, true
}

// Events retorna cópias dos snapshots atuais
func (s *Simulator) Events() []events.FeedUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.FeedUpdate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, snapshot(s.matches[id].state))
	}
	return out
}

// Run gera partidas e ticks até ctx terminar
func (s *Simulator) Run(ctx context.Context) {
	tick := time.NewTicker(s.opts.Tick)
	defer tick.Stop()
	gen := time.NewTicker(s.opts.NewEventEvery)
	defer gen.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gen.C:
			if s.liveCount() < s.opts.MaxEvents {
				s.NewEvent(ctx)
			}
		case <-tick.C:
			s.Tick(ctx)
		}
	}
}

func (s *Simulator) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.matches {
		if m.state.Status != "completed" {
			n++
		}
	}
	return n
}

func (s *Simulator) refreshLive() {
	s.metrics.Live.Set(float64(s.liveCount()))
}

func (s *Simulator) publish(ctx context.Context, u events.FeedUpdate) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, u); err != nil {
		s.metrics.Failures.Inc()
		s.log.Warn("feed publish failed", zap.String("event_id", u.EventID), zap.Error(err))
		return
	}
	s.metrics.Published.WithLabelValues(u.Kind).Inc()
}

// snapshot copia os mapas para que o publisher não veja mutações futuras
func snapshot(u events.FeedUpdate) events.FeedUpdate {
	scores := make(map[string]int, len(u.Scores))
	for k, v := range u.Scores {
		scores[k] = v
	}
	odds := make(map[string]decimal.Decimal, len(u.Odds))
	for k, v := range u.Odds {
		odds[k] = v
	}
	u.Scores, u.Odds = scores, odds
	return u
}
