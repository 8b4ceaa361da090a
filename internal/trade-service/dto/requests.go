package dto

import "github.com/shopspring/decimal"

// PlaceTradeRequest: o usuário vem do token, nunca do corpo
type PlaceTradeRequest struct {
	EventID      string          `json:"eventId"`
	SelectedTeam string          `json:"selectedTeam"`
	BetAmount    decimal.Decimal `json:"betAmount"`
}

type SettleRequest struct {
	EventID string `json:"eventId"`
}

type DepositRequest struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

// UpdateScoresRequest: odds ausente mantém as atuais
type UpdateScoresRequest struct {
	Scores map[string]int             `json:"scores"`
	Odds   map[string]decimal.Decimal `json:"odds,omitempty"`
}
