package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/trade-service/lock"
	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
	ev "github.com/radieske/sports-trade-engine/pkg/contracts/events"
)

const (
	OutcomeDecided = "decided"
	OutcomeDraw    = "draw"
)

// SettlementResult resume uma liquidação. Uma segunda chamada devolve Settled == 0.
type SettlementResult struct {
	EventID     string          `json:"eventId"`
	Winner      string          `json:"winner"`
	Outcome     string          `json:"outcome"`
	Settled     int             `json:"settled"`
	Won         int             `json:"won"`
	Lost        int             `json:"lost"`
	Refunded    int             `json:"refunded"`
	TotalPayout decimal.Decimal `json:"totalPayout"`
	Message     string          `json:"message"`
}

// plan decide o destino de cada aposta pendente e agrega os créditos por usuário
func plan(winner string, pending []repo.Stake) ([]repo.Transition, map[string]decimal.Decimal, SettlementResult) {
	draw := winner == "" || winner == repo.WinnerDraw
	res := SettlementResult{Outcome: OutcomeDecided, Winner: winner, TotalPayout: decimal.Zero}
	if draw {
		res.Outcome = OutcomeDraw
		res.Winner = repo.WinnerDraw
	}

	transitions := make([]repo.Transition, 0, len(pending))
	credits := make(map[string]decimal.Decimal)
	for _, st := range pending {
		t := repo.Transition{StakeID: st.ID, Payout: decimal.Zero}
		switch {
		case draw:
			t.Status = repo.StakeRefunded
			t.Payout = st.BetAmount
			res.Refunded++
		case st.SelectedTeam == winner:
			t.Status = repo.StakeWon
			t.Payout = st.BetAmount.Mul(st.Odds).Round(moneyScale)
			res.Won++
		default:
			t.Status = repo.StakeLost
			res.Lost++
		}
		if positive(t.Payout) {
			credits[st.UserID] = credits[st.UserID].Add(t.Payout)
			res.TotalPayout = res.TotalPayout.Add(t.Payout)
		}
		transitions = append(transitions, t)
	}
	res.Settled = len(transitions)
	return transitions, credits, res
}

// SettleEvent liquida as apostas pendentes de um evento completed.
// Créditos e transições são gravados na mesma transação; cada aposta só sai
// de pending uma vez, então nunca é creditada duas vezes.
func (e *Engine) SettleEvent(ctx context.Context, eventID string) (SettlementResult, error) {
	release, err := e.locker.Acquire(ctx, eventID)
	if errors.Is(err, lock.ErrLockFailed) {
		e.metrics.Settled("conflict", nil)
		return SettlementResult{}, ErrTransactionConflict
	} else if err != nil {
		return SettlementResult{}, fmt.Errorf("settle lock: %w: %w", ErrStoreUnavailable, err)
	}
	defer release()

	var res SettlementResult
	err = e.retry(ctx, "settle", func() error {
		var err error
		res, err = e.settleOnce(ctx, eventID)
		return err
	})
	if err == errRetry {
		err = ErrTransactionConflict
	}
	if err != nil {
		if errors.Is(err, ErrTransactionConflict) {
			e.metrics.Settled("conflict", nil)
		}
		return SettlementResult{}, err
	}

	e.metrics.Settled(res.Outcome, map[string]int{
		repo.StakeWon:      res.Won,
		repo.StakeLost:     res.Lost,
		repo.StakeRefunded: res.Refunded,
	})
	e.log.Info("event settled",
		zap.String("eventId", eventID), zap.String("winner", res.Winner),
		zap.Int("settled", res.Settled), zap.String("totalPayout", res.TotalPayout.String()))

	e.notify(ctx, eventID, ev.TradeResult{
		Type:    ev.TypeTradeResult,
		EventID: eventID,
		Winner:  res.Winner,
		Message: res.Message,
	})
	e.closeTopic(ctx, eventID)
	return res, nil
}

// closeTopic sela o tópico e desliga os assinantes depois da janela de graça
func (e *Engine) closeTopic(ctx context.Context, eventID string) {
	if e.bus == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.bus.Seal(sctx, eventID); err != nil {
		e.metrics.NotifyFailed()
		e.log.Warn("seal topic failed", zap.String("eventId", eventID), zap.Error(err))
	}
	time.AfterFunc(e.opts.DetachGrace, func() {
		dctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.bus.DetachAll(dctx, eventID); err != nil {
			e.metrics.NotifyFailed()
			e.log.Warn("detach subscribers failed", zap.String("eventId", eventID), zap.Error(err))
		}
	})
}

func (e *Engine) settleOnce(ctx context.Context, eventID string) (SettlementResult, error) {
	defer e.observe("settle", time.Now())
	tctx, cancel := context.WithTimeout(ctx, e.opts.TxTimeout)
	defer cancel()

	tx, err := e.db.BeginTx(tctx, nil)
	if err != nil {
		return SettlementResult{}, translate("begin", err)
	}
	defer tx.Rollback()

	event, err := e.events.Get(tctx, tx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		return SettlementResult{}, ErrEventNotFound
	} else if err != nil {
		return SettlementResult{}, translate("get event", err)
	}
	if event.Status != repo.EventCompleted {
		return SettlementResult{}, ErrEventNotSettleable
	}

	// as pendentes são lidas depois do evento, já com o vencedor conhecido
	pending, err := e.stakes.ListPendingByEvent(tctx, tx, eventID)
	if err != nil {
		return SettlementResult{}, translate("list pending", err)
	}

	transitions, credits, res := plan(event.Winner, pending)
	res.EventID = eventID

	e.interleave("settle", tx)

	if len(transitions) > 0 {
		if err := e.ledger.CreditMany(tctx, tx, credits); err != nil {
			return SettlementResult{}, translate("credit", err)
		}
		n, err := e.stakes.Settle(tctx, tx, transitions, time.Now())
		if err != nil {
			return SettlementResult{}, translate("transition stakes", err)
		}
		if n != int64(len(transitions)) {
			// outro liquidante mudou parte das apostas: desfaz tudo
			return SettlementResult{}, errRetry
		}
	}

	if err := tx.Commit(); err != nil {
		return SettlementResult{}, translate("commit", err)
	}

	switch {
	case res.Settled == 0:
		res.Message = "No pending trades to settle for this event"
	case res.Outcome == OutcomeDraw:
		res.Message = fmt.Sprintf("Event %s ended in a draw. Bets refunded.", eventID)
	default:
		res.Message = fmt.Sprintf("Trades settled for event %s. Winner: %s", eventID, res.Winner)
	}
	return res, nil
}
