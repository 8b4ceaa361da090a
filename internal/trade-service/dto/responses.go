package dto

import "github.com/radieske/sports-trade-engine/internal/trade-service/repo"

type PlaceTradeResponse struct {
	Message string     `json:"message"`
	Trade   repo.Stake `json:"trade"`
}

type EventResponse struct {
	Message string     `json:"message"`
	Event   repo.Event `json:"event"`
}

type StatusResponse struct {
	Message string `json:"message"`
	Winner  string `json:"winner"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
