package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/radieske/sports-trade-engine/internal/shared/db"
	"github.com/shopspring/decimal"
)

// Ledger guarda os saldos. Toda escrita é um compare-and-swap sobre version;
// o chamador decide a transação passando o Querier (*sql.DB ou *sql.Tx).
type Ledger struct{}

func NewLedger() *Ledger { return &Ledger{} }

// Get retorna a conta do usuário ou ErrNotFound
func (l *Ledger) Get(ctx context.Context, q db.Querier, userID string) (Account, error) {
	var a Account
	err := q.QueryRowContext(ctx,
		`SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id=$1`, userID,
	).Scan(&a.UserID, &a.Balance, &a.Version, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account %s: %w", userID, err)
	}
	return a, nil
}

// Open cria a conta com saldo inicial; se já existir, mantém a atual
func (l *Ledger) Open(ctx context.Context, q db.Querier, userID string, initial decimal.Decimal) (Account, error) {
	if initial.IsNegative() {
		return Account{}, ErrNegativeBalance
	}
	now := time.Now().UTC()
	if _, err := q.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, initial, now,
	); err != nil {
		return Account{}, fmt.Errorf("open account %s: %w", userID, err)
	}
	return l.Get(ctx, q, userID)
}

// CompareAndSwap grava o novo saldo se a versão ainda for a lida.
// Nenhuma linha afetada significa que outro escritor chegou antes: ErrConflict.
func (l *Ledger) CompareAndSwap(ctx context.Context, q db.Querier, userID string, version int64, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return ErrNegativeBalance
	}
	res, err := q.ExecContext(ctx, `
		UPDATE accounts SET balance=$1, version=version+1, updated_at=$2
		WHERE user_id=$3 AND version=$4`,
		balance, time.Now().UTC(), userID, version,
	)
	if err != nil {
		if db.IsConflict(err) {
			return ErrConflict
		}
		return fmt.Errorf("cas account %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cas account %s: %w", userID, err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Credit soma amount ao saldo atual (leitura + CAS)
func (l *Ledger) Credit(ctx context.Context, q db.Querier, userID string, amount decimal.Decimal) (Account, error) {
	a, err := l.Get(ctx, q, userID)
	if err != nil {
		return Account{}, err
	}
	next := a.Balance.Add(amount)
	if err := l.CompareAndSwap(ctx, q, userID, a.Version, next); err != nil {
		return Account{}, err
	}
	a.Balance = next
	a.Version++
	return a, nil
}

// CreditMany aplica créditos agregados por usuário em ordem de userID,
// para que liquidações concorrentes nunca se cruzem em ordens diferentes.
func (l *Ledger) CreditMany(ctx context.Context, q db.Querier, credits map[string]decimal.Decimal) error {
	users := make([]string, 0, len(credits))
	for u := range credits {
		users = append(users, u)
	}
	sort.Strings(users)

	for _, u := range users {
		amount := credits[u]
		if amount.IsZero() {
			continue
		}
		if _, err := l.Credit(ctx, q, u, amount); err != nil {
			return fmt.Errorf("credit %s: %w", u, err)
		}
	}
	return nil
}
