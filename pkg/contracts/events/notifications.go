package events

import "github.com/shopspring/decimal"

// Tipos de mensagem entregues aos assinantes de um evento (WebSocket)
const (
	TypeSubscribed  = "subscribed"
	TypeEventUpdate = "eventUpdate"
	TypeTradeResult = "tradeResult"
)

// Subscribed é publicado após uma aposta ser aceita.
type Subscribed struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	EventID string `json:"eventId"`
	Message string `json:"message"`
}

// EventUpdate é publicado pelo feed quando placar, odds ou status mudam.
type EventUpdate struct {
	Type    string                     `json:"type"`
	EventID string                     `json:"eventId"`
	Scores  map[string]int             `json:"scores"`
	Odds    map[string]decimal.Decimal `json:"odds"`
	Winner  *string                    `json:"winner,omitempty"`
	Status  string                     `json:"status"`
	Message string                     `json:"message"`
}

// TradeResult é publicado ao final da liquidação de um evento.
type TradeResult struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
	Winner  string `json:"winner"`
	Message string `json:"message"`
}
