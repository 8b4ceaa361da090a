package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/sports-trade-engine/internal/shared/db"
)

// EventStore guarda as partidas. Status e vencedor só mudam pelo caminho de
// atualização do feed; o trade engine apenas lê e segura o evento aberto.
type EventStore struct{}

func NewEventStore() *EventStore { return &EventStore{} }

const eventColumns = `event_id, name, scheduled_at, scores, odds, status, winner, version, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (Event, error) {
	var (
		e            Event
		scores, odds []byte
		winner       sql.NullString
	)
	if err := r.Scan(&e.EventID, &e.Name, &e.ScheduledAt, &scores, &odds, &e.Status, &winner, &e.Version, &e.UpdatedAt); err != nil {
		return Event{}, err
	}
	if err := json.Unmarshal(scores, &e.Scores); err != nil {
		return Event{}, fmt.Errorf("decode scores of %s: %w", e.EventID, err)
	}
	if err := json.Unmarshal(odds, &e.Odds); err != nil {
		return Event{}, fmt.Errorf("decode odds of %s: %w", e.EventID, err)
	}
	e.Winner = winner.String
	return e, nil
}

// Get retorna o evento ou ErrNotFound
func (s *EventStore) Get(ctx context.Context, q db.Querier, eventID string) (Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_id=$1`, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return e, nil
}

// GetByName retorna o evento mais recente com esse nome
func (s *EventStore) GetByName(ctx context.Context, q db.Querier, name string) (Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE name=$1 ORDER BY scheduled_at DESC, event_id LIMIT 1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("get event by name %q: %w", name, err)
	}
	return e, nil
}

// List retorna todos os eventos por data agendada
func (s *EventStore) List(ctx context.Context, q db.Querier) ([]Event, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY scheduled_at, event_id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// HoldOpen faz uma escrita sem efeito na linha do evento enquanto ele está
// upcoming. A trava de linha ordena a aposta contra a troca de status do feed.
// Nenhuma linha afetada: o evento saiu de upcoming (ou sumiu) e retorna ErrConflict.
func (s *EventStore) HoldOpen(ctx context.Context, q db.Querier, eventID string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE events SET version=version WHERE event_id=$1 AND status='upcoming'`, eventID)
	if err != nil {
		return fmt.Errorf("hold event %s: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("hold event %s: %w", eventID, err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func validate(e Event) error {
	if e.EventID == "" || e.Name == "" {
		return fmt.Errorf("%w: missing id or name", ErrInvalidEvent)
	}
	if !ValidEventStatus(e.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, e.Status)
	}
	if (e.Status == EventCompleted) != (e.Winner != "") {
		return fmt.Errorf("%w: winner must be set iff completed", ErrInvalidEvent)
	}
	return nil
}

func encode(e Event) (scores, odds []byte, winner sql.NullString, err error) {
	if e.Scores == nil {
		e.Scores = map[string]int{}
	}
	if scores, err = json.Marshal(e.Scores); err != nil {
		return nil, nil, winner, err
	}
	if e.Odds == nil {
		odds = []byte("{}")
	} else if odds, err = json.Marshal(e.Odds); err != nil {
		return nil, nil, winner, err
	}
	winner = sql.NullString{String: e.Winner, Valid: e.Winner != ""}
	return scores, odds, winner, nil
}

// Upsert cria o evento ou substitui um existente que ainda não terminou.
// Eventos completed são imutáveis: ErrEventCompleted.
func (s *EventStore) Upsert(ctx context.Context, q db.Querier, e Event) (Event, error) {
	if err := validate(e); err != nil {
		return Event{}, err
	}
	scores, odds, winner, err := encode(e)
	if err != nil {
		return Event{}, fmt.Errorf("encode event %s: %w", e.EventID, err)
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO events (event_id, name, scheduled_at, scores, odds, status, winner, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8)
		ON CONFLICT (event_id) DO UPDATE SET
			name=excluded.name, scheduled_at=excluded.scheduled_at, scores=excluded.scores,
			odds=excluded.odds, status=excluded.status, winner=excluded.winner,
			version=events.version+1, updated_at=excluded.updated_at
		WHERE events.status <> 'completed'`,
		e.EventID, e.Name, e.ScheduledAt.UTC(), string(scores), string(odds), e.Status, winner, time.Now().UTC(),
	)
	if err != nil {
		if db.IsConflict(err) {
			return Event{}, ErrConflict
		}
		return Event{}, fmt.Errorf("upsert event %s: %w", e.EventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Event{}, fmt.Errorf("upsert event %s: %w", e.EventID, err)
	}
	if n == 0 {
		return Event{}, ErrEventCompleted
	}
	return s.Get(ctx, q, e.EventID)
}

// Update grava o snapshot com CAS sobre e.Version. Recusa eventos já
// completed e exige vencedor se e somente se o novo status for completed.
func (s *EventStore) Update(ctx context.Context, q db.Querier, e Event) (Event, error) {
	if err := validate(e); err != nil {
		return Event{}, err
	}
	scores, odds, winner, err := encode(e)
	if err != nil {
		return Event{}, fmt.Errorf("encode event %s: %w", e.EventID, err)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE events SET name=$1, scheduled_at=$2, scores=$3, odds=$4, status=$5, winner=$6,
			version=version+1, updated_at=$7
		WHERE event_id=$8 AND version=$9 AND status <> 'completed'`,
		e.Name, e.ScheduledAt.UTC(), string(scores), string(odds), e.Status, winner, time.Now().UTC(),
		e.EventID, e.Version,
	)
	if err != nil {
		if db.IsConflict(err) {
			return Event{}, ErrConflict
		}
		return Event{}, fmt.Errorf("update event %s: %w", e.EventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Event{}, fmt.Errorf("update event %s: %w", e.EventID, err)
	}
	if n == 0 {
		cur, err := s.Get(ctx, q, e.EventID)
		if err != nil {
			return Event{}, err
		}
		if cur.Status == EventCompleted {
			return Event{}, ErrEventCompleted
		}
		return Event{}, ErrConflict
	}
	return s.Get(ctx, q, e.EventID)
}
