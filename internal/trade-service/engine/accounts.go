package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
)

// OpenAccount cria a conta com saldo inicial; chamadas repetidas não alteram o saldo.
// O cadastro de usuários fica fora deste serviço; isto atende seed e testes.
func (e *Engine) OpenAccount(ctx context.Context, userID string, initial decimal.Decimal) (repo.Account, error) {
	if initial.IsNegative() || !representable(initial) {
		return repo.Account{}, ErrInvalidAmount
	}
	tctx, cancel := context.WithTimeout(ctx, e.opts.TxTimeout)
	defer cancel()
	a, err := e.ledger.Open(tctx, e.db, userID, initial)
	if err != nil {
		return repo.Account{}, unavailable("open account", err)
	}
	return a, nil
}

// Deposit credita amount no saldo (recarga feita pelo operador)
func (e *Engine) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (repo.Account, error) {
	if !positive(amount) || !representable(amount) {
		return repo.Account{}, ErrInvalidAmount
	}

	var acct repo.Account
	err := e.retry(ctx, "deposit", func() error {
		defer e.observe("deposit", time.Now())
		tctx, cancel := context.WithTimeout(ctx, e.opts.TxTimeout)
		defer cancel()

		var err error
		acct, err = e.ledger.Credit(tctx, e.db, userID, amount)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		} else if err != nil {
			return translate("deposit", err)
		}
		return nil
	})
	if err == errRetry {
		err = ErrTransactionConflict
	}
	if err != nil {
		return repo.Account{}, err
	}
	e.log.Info("deposit applied", zap.String("userId", userID), zap.String("amount", amount.String()),
		zap.String("balance", acct.Balance.String()))
	return acct, nil
}
