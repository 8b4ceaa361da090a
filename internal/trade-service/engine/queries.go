package engine

import (
	"context"
	"errors"

	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
)

// Consultas leem direto do pool, sem transação e sem travas.

// EventScore é a resposta da consulta de placar por nome
type EventScore struct {
	EventID string         `json:"eventId"`
	Name    string         `json:"name"`
	Scores  map[string]int `json:"scores"`
}

func (e *Engine) ListUserStakes(ctx context.Context, userID string) ([]repo.UserStake, error) {
	out, err := e.stakes.ListByUser(ctx, e.db, userID)
	if err != nil {
		return nil, unavailable("list user stakes", err)
	}
	return out, nil
}

func (e *Engine) ListEvents(ctx context.Context) ([]repo.Event, error) {
	out, err := e.events.List(ctx, e.db)
	if err != nil {
		return nil, unavailable("list events", err)
	}
	return out, nil
}

func (e *Engine) GetEvent(ctx context.Context, eventID string) (repo.Event, error) {
	ev, err := e.events.Get(ctx, e.db, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		return repo.Event{}, ErrEventNotFound
	} else if err != nil {
		return repo.Event{}, unavailable("get event", err)
	}
	return ev, nil
}

func (e *Engine) GetEventScoreByName(ctx context.Context, name string) (EventScore, error) {
	ev, err := e.events.GetByName(ctx, e.db, name)
	if errors.Is(err, repo.ErrNotFound) {
		return EventScore{}, ErrEventNotFound
	} else if err != nil {
		return EventScore{}, unavailable("get event by name", err)
	}
	return EventScore{EventID: ev.EventID, Name: ev.Name, Scores: ev.Scores}, nil
}

// ListEventStakes é a visão do operador sobre o livro de um evento
func (e *Engine) ListEventStakes(ctx context.Context, eventID string) ([]repo.Stake, error) {
	if _, err := e.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	out, err := e.stakes.ListByEvent(ctx, e.db, eventID)
	if err != nil {
		return nil, unavailable("list event stakes", err)
	}
	return out, nil
}

func (e *Engine) GetAccount(ctx context.Context, userID string) (repo.Account, error) {
	a, err := e.ledger.Get(ctx, e.db, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return repo.Account{}, ErrAccountNotFound
	} else if err != nil {
		return repo.Account{}, unavailable("get account", err)
	}
	return a, nil
}
