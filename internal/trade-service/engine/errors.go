package engine

import (
	"errors"
	"fmt"

	"github.com/radieske/sports-trade-engine/internal/shared/db"
	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive with at most 4 decimal places")
	ErrAccountNotFound     = errors.New("account not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrBettingClosed       = errors.New("betting is closed for this event")
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrInvalidSelection    = errors.New("invalid team selection")
	ErrEventNotSettleable  = errors.New("event is not completed")
	ErrTransactionConflict = errors.New("transaction conflict, try again")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// errRetry marca uma tentativa perdida para outro escritor; nunca sai do pacote
var errRetry = errors.New("retry")

// translate converte erros de repositório/driver: conflitos viram errRetry,
// o resto vira ErrStoreUnavailable
func translate(op string, err error) error {
	if errors.Is(err, repo.ErrConflict) || db.IsConflict(err) {
		return errRetry
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
