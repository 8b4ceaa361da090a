package main

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/notify"
	"github.com/radieske/sports-trade-engine/internal/shared/db"
	"github.com/radieske/sports-trade-engine/internal/trade-service/engine"
	"github.com/radieske/sports-trade-engine/internal/trade-service/lock"
)

func TestParseAccounts(t *testing.T) {
	got, err := parseAccounts(" alice:1000, bob:250.50 ,")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || !got["alice"].Equal(decimal.NewFromInt(1000)) || !got["bob"].Equal(decimal.RequireFromString("250.5")) {
		t.Fatalf("unexpected accounts %v", got)
	}

	for _, bad := range []string{"alice", ":10", "alice:abc", "alice:-5"} {
		if _, err := parseAccounts(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
	if got, err := parseAccounts(""); err != nil || len(got) != 0 {
		t.Fatalf("empty list: %v %v", got, err)
	}
}

func TestSeedAccounts_KeepsExistingBalance(t *testing.T) {
	ctx := context.Background()
	conn, err := db.ConnectSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, notify.NewHub(nil), lock.NewLocalLocker(time.Second), nil, nil, engine.Options{})

	if err := seedAccounts(ctx, eng, "alice:100", zap.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := eng.Deposit(ctx, "alice", decimal.NewFromInt(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := seedAccounts(ctx, eng, "alice:100", zap.NewNop()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	acc, err := eng.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !acc.Balance.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("reseed must not reset balance, got %s", acc.Balance)
	}
}
