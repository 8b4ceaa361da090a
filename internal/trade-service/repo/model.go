package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status de um evento esportivo
const (
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
)

// Status de uma aposta
const (
	StakePending  = "pending"
	StakeWon      = "won"
	StakeLost     = "lost"
	StakeRefunded = "refunded"
)

// WinnerDraw é o vencedor declarado quando a partida termina empatada
const WinnerDraw = "draw"

// Account é o saldo de um usuário. Version protege o compare-and-swap.
type Account struct {
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Event é uma partida. Winner só é preenchido quando Status == completed.
type Event struct {
	EventID     string                     `json:"eventId"`
	Name        string                     `json:"name"`
	ScheduledAt time.Time                  `json:"scheduledAt"`
	Scores      map[string]int             `json:"scores"`
	Odds        map[string]decimal.Decimal `json:"odds"`
	Status      string                     `json:"status"`
	Winner      string                     `json:"winner,omitempty"`
	Version     int64                      `json:"version"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
}

// Stake é uma aposta. Odds fica congelada no momento da criação.
type Stake struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	EventID      string          `json:"eventId"`
	SelectedTeam string          `json:"selectedTeam"`
	BetAmount    decimal.Decimal `json:"betAmount"`
	Odds         decimal.Decimal `json:"odds"`
	Status       string          `json:"status"`
	Payout       decimal.Decimal `json:"payout"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	SettledAt    *time.Time      `json:"settledAt,omitempty"`
}

// UserStake é a projeção de uma aposta com os dados do evento
type UserStake struct {
	Stake
	EventName   string    `json:"eventName"`
	EventDate   time.Time `json:"eventDate"`
	EventStatus string    `json:"eventStatus"`
}

// Transition é a mudança de status de uma aposta pendente durante a liquidação
type Transition struct {
	StakeID string
	Status  string
	Payout  decimal.Decimal
}

// ValidEventStatus indica se o status é conhecido
func ValidEventStatus(s string) bool {
	switch s {
	case EventUpcoming, EventOngoing, EventCompleted:
		return true
	}
	return false
}
