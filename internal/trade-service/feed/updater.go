// Package feed é o único caminho de escrita das partidas: snapshots do
// simulador (via Kafka), busca de evento mock e transições do operador.
package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/notify"
	"github.com/radieske/sports-trade-engine/internal/shared/metrics"
	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
	ev "github.com/radieske/sports-trade-engine/pkg/contracts/events"
)

var ErrInvalidStatus = errors.New("invalid event status")

const (
	casAttempts    = 3
	publishTimeout = 2 * time.Second
)

// Updater grava eventos e publica eventUpdate no tópico do evento
type Updater struct {
	db        *sql.DB
	events    *repo.EventStore
	bus       notify.Bus
	metrics   *metrics.Trade
	log       *zap.Logger
	txTimeout time.Duration
}

func NewUpdater(conn *sql.DB, bus notify.Bus, m *metrics.Trade, log *zap.Logger, txTimeout time.Duration) *Updater {
	if log == nil {
		log = zap.NewNop()
	}
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &Updater{db: conn, events: repo.NewEventStore(), bus: bus, metrics: m, log: log, txTimeout: txTimeout}
}

// EventFromFeed converte o snapshot do simulador para o modelo da store
func EventFromFeed(upd ev.FeedUpdate) repo.Event {
	e := repo.Event{
		EventID:     upd.EventID,
		Name:        upd.Name,
		ScheduledAt: upd.ScheduledAt,
		Scores:      upd.Scores,
		Odds:        upd.Odds,
		Status:      upd.Status,
	}
	if upd.Status == repo.EventCompleted {
		e.Winner = upd.Winner
	}
	return e
}

// DecideWinner: maior placar vence, empate vira "draw"
func DecideWinner(scores map[string]int) string {
	winner, best, tie := "", 0, false
	for team, s := range scores {
		switch {
		case winner == "" || s > best:
			winner, best, tie = team, s, false
		case s == best:
			tie = true
		}
	}
	if winner == "" || tie {
		return repo.WinnerDraw
	}
	return winner
}

// Upsert cria ou substitui um evento ainda não encerrado
func (u *Updater) Upsert(ctx context.Context, e repo.Event) (repo.Event, error) {
	tctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()
	saved, err := u.events.Upsert(tctx, u.db, e)
	if err != nil {
		return repo.Event{}, err
	}
	u.metrics.FeedApplied(ev.FeedCreated)
	u.publish(ctx, saved, "Event created")
	return saved, nil
}

// ApplyFeed aplica um snapshot do simulador. Evento desconhecido é criado;
// evento já encerrado devolve repo.ErrEventCompleted.
func (u *Updater) ApplyFeed(ctx context.Context, upd ev.FeedUpdate) (repo.Event, error) {
	incoming := EventFromFeed(upd)
	if upd.Kind == ev.FeedCreated {
		return u.Upsert(ctx, incoming)
	}

	saved, err := u.mutate(ctx, upd.EventID, func(cur *repo.Event) error {
		if incoming.Name != "" {
			cur.Name = incoming.Name
		}
		if !incoming.ScheduledAt.IsZero() {
			cur.ScheduledAt = incoming.ScheduledAt
		}
		if incoming.Scores != nil {
			cur.Scores = incoming.Scores
		}
		if incoming.Odds != nil {
			cur.Odds = incoming.Odds
		}
		cur.Status = incoming.Status
		cur.Winner = incoming.Winner
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return u.Upsert(ctx, incoming)
	}
	if err != nil {
		return repo.Event{}, err
	}

	u.metrics.FeedApplied(upd.Kind)
	msg := "Scores updated"
	if saved.Status == repo.EventCompleted {
		msg = "Match ended. Winner: " + saved.Winner
	}
	u.publish(ctx, saved, msg)
	return saved, nil
}

// UpdateStatus é a transição manual do operador. Ao encerrar, o vencedor
// sai do placar atual.
func (u *Updater) UpdateStatus(ctx context.Context, eventID, status string) (repo.Event, error) {
	if !repo.ValidEventStatus(status) {
		return repo.Event{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	saved, err := u.mutate(ctx, eventID, func(cur *repo.Event) error {
		cur.Status = status
		cur.Winner = ""
		if status == repo.EventCompleted {
			cur.Winner = DecideWinner(cur.Scores)
		}
		return nil
	})
	if err != nil {
		return repo.Event{}, err
	}
	u.metrics.FeedApplied(ev.FeedStatus)
	u.publish(ctx, saved, "Event status updated to "+status)
	return saved, nil
}

// UpdateScores troca placar e odds; odds nil mantém as atuais
func (u *Updater) UpdateScores(ctx context.Context, eventID string, scores map[string]int, odds map[string]decimal.Decimal) (repo.Event, error) {
	saved, err := u.mutate(ctx, eventID, func(cur *repo.Event) error {
		cur.Scores = scores
		if odds != nil {
			cur.Odds = odds
		}
		return nil
	})
	if err != nil {
		return repo.Event{}, err
	}
	u.metrics.FeedApplied(ev.FeedScores)
	u.publish(ctx, saved, "Scores updated")
	return saved, nil
}

// mutate lê, aplica fn e grava com CAS de versão, repetindo se outro escritor chegou antes
func (u *Updater) mutate(ctx context.Context, eventID string, fn func(*repo.Event) error) (repo.Event, error) {
	var err error
	for i := 0; i < casAttempts; i++ {
		var saved repo.Event
		saved, err = u.mutateOnce(ctx, eventID, fn)
		if !errors.Is(err, repo.ErrConflict) {
			return saved, err
		}
	}
	return repo.Event{}, err
}

func (u *Updater) mutateOnce(ctx context.Context, eventID string, fn func(*repo.Event) error) (repo.Event, error) {
	tctx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	cur, err := u.events.Get(tctx, u.db, eventID)
	if err != nil {
		return repo.Event{}, err
	}
	if cur.Status == repo.EventCompleted {
		return repo.Event{}, repo.ErrEventCompleted
	}
	if err := fn(&cur); err != nil {
		return repo.Event{}, err
	}
	return u.events.Update(tctx, u.db, cur)
}

func (u *Updater) publish(ctx context.Context, e repo.Event, message string) {
	if u.bus == nil {
		return
	}
	msg := ev.EventUpdate{
		Type:    ev.TypeEventUpdate,
		EventID: e.EventID,
		Scores:  e.Scores,
		Odds:    e.Odds,
		Status:  e.Status,
		Message: message,
	}
	if e.Winner != "" {
		w := e.Winner
		msg.Winner = &w
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := u.bus.Publish(pctx, e.EventID, msg); err != nil {
		u.metrics.NotifyFailed()
		u.log.Warn("event update publish failed", zap.String("eventId", e.EventID), zap.Error(err))
	}
}
