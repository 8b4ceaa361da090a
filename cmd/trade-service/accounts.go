package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/trade-service/engine"
)

// parseAccounts lê "alice:1000,bob:250.50"
func parseAccounts(csv string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, item := range strings.Split(csv, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		user, amount, ok := strings.Cut(item, ":")
		user = strings.TrimSpace(user)
		if !ok || user == "" {
			return nil, fmt.Errorf("demo account %q: expected user:balance", item)
		}
		bal, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil || bal.IsNegative() {
			return nil, fmt.Errorf("demo account %q: invalid balance", item)
		}
		out[user] = bal
	}
	return out, nil
}

// seedAccounts abre as contas de demonstração; contas existentes mantêm o saldo
func seedAccounts(ctx context.Context, eng *engine.Engine, csv string, log *zap.Logger) error {
	accounts, err := parseAccounts(csv)
	if err != nil {
		return err
	}
	for user, bal := range accounts {
		acc, err := eng.OpenAccount(ctx, user, bal)
		if err != nil {
			return fmt.Errorf("open account %s: %w", user, err)
		}
		log.Info("demo account ready", zap.String("user_id", user), zap.String("balance", acc.Balance.String()))
	}
	return nil
}
