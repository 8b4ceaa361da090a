package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
	ev "github.com/radieske/sports-trade-engine/pkg/contracts/events"
)

// PlaceStake debita o saldo e cria (ou aumenta) a aposta pendente do usuário
// no time escolhido, tudo na mesma transação. A odd fica congelada na criação.
func (e *Engine) PlaceStake(ctx context.Context, userID, eventID, team string, amount decimal.Decimal) (repo.Stake, error) {
	if !positive(amount) || !representable(amount) {
		e.metrics.Rejected("invalid_amount")
		return repo.Stake{}, ErrInvalidAmount
	}

	var st repo.Stake
	err := e.retry(ctx, "place", func() error {
		var err error
		st, err = e.placeOnce(ctx, userID, eventID, team, amount)
		return err
	})
	if err == errRetry {
		// tentativas esgotadas contra outros débitos do mesmo saldo
		err = ErrInsufficientFunds
	}
	if err != nil {
		e.metrics.Rejected(reason(err))
		return repo.Stake{}, err
	}

	e.metrics.Placed()
	e.log.Info("stake placed",
		zap.String("stakeId", st.ID), zap.String("userId", userID),
		zap.String("eventId", eventID), zap.String("team", team),
		zap.String("amount", amount.String()), zap.String("odds", st.Odds.String()))

	e.notify(ctx, eventID, ev.Subscribed{
		Type:    ev.TypeSubscribed,
		UserID:  userID,
		EventID: eventID,
		Message: fmt.Sprintf("User %s subscribed to %s", userID, eventID),
	})
	return st, nil
}

func (e *Engine) placeOnce(ctx context.Context, userID, eventID, team string, amount decimal.Decimal) (repo.Stake, error) {
	defer e.observe("place", time.Now())
	tctx, cancel := context.WithTimeout(ctx, e.opts.TxTimeout)
	defer cancel()

	tx, err := e.db.BeginTx(tctx, nil)
	if err != nil {
		return repo.Stake{}, translate("begin", err)
	}
	defer tx.Rollback()

	acct, err := e.ledger.Get(tctx, tx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return repo.Stake{}, ErrAccountNotFound
	} else if err != nil {
		return repo.Stake{}, translate("get account", err)
	}

	event, err := e.events.Get(tctx, tx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		return repo.Stake{}, ErrEventNotFound
	} else if err != nil {
		return repo.Stake{}, translate("get event", err)
	}
	if event.Status != repo.EventUpcoming {
		return repo.Stake{}, ErrBettingClosed
	}
	if acct.Balance.LessThan(amount) {
		return repo.Stake{}, ErrInsufficientFunds
	}
	odds, ok := event.Odds[team]
	if !ok {
		return repo.Stake{}, ErrInvalidSelection
	}

	e.interleave("place", tx)

	// segura o evento em upcoming até o commit
	if err := e.events.HoldOpen(tctx, tx, eventID); errors.Is(err, repo.ErrConflict) {
		return repo.Stake{}, ErrBettingClosed
	} else if err != nil {
		return repo.Stake{}, translate("hold event", err)
	}

	if err := e.ledger.CompareAndSwap(tctx, tx, userID, acct.Version, acct.Balance.Sub(amount)); err != nil {
		return repo.Stake{}, translate("debit", err)
	}

	st, err := e.stakes.FindPending(tctx, tx, userID, eventID, team)
	switch {
	case err == nil:
		st, err = e.stakes.AddToPending(tctx, tx, st, amount)
	case errors.Is(err, repo.ErrNotFound):
		st, err = e.stakes.Insert(tctx, tx, repo.Stake{
			UserID:       userID,
			EventID:      eventID,
			SelectedTeam: team,
			BetAmount:    amount,
			Odds:         odds.Round(moneyScale),
		})
	}
	if err != nil {
		return repo.Stake{}, translate("write stake", err)
	}

	if err := tx.Commit(); err != nil {
		return repo.Stake{}, translate("commit", err)
	}
	return st, nil
}

// reason rotula rejeições para as métricas
func reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, ErrBettingClosed):
		return "betting_closed"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidSelection):
		return "invalid_selection"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	}
	return "other"
}
