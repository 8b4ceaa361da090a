package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de mensagem publicados no tópico "event_feed"
const (
	FeedCreated = "created"
	FeedScores  = "scores"
	FeedStatus  = "status"
)

// FeedUpdate é o snapshot de uma partida emitido pelo simulador.
// Cada mensagem carrega o estado completo; o processor aplica por versão.
type FeedUpdate struct {
	Kind        string                     `json:"kind"`
	EventID     string                     `json:"event_id"`
	Name        string                     `json:"name"`
	ScheduledAt time.Time                  `json:"scheduled_at"`
	Scores      map[string]int             `json:"scores"`
	Odds        map[string]decimal.Decimal `json:"odds"`
	Status      string                     `json:"status"`
	Winner      string                     `json:"winner,omitempty"`
	Version     int                        `json:"version"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	Source      string                     `json:"source"` // "event-feed-simulator"
}
