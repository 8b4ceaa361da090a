package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/radieske/sports-trade-engine/internal/shared/db"
	"github.com/shopspring/decimal"
)

func setupRepoTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.ConnectSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.Migrate(context.Background(), conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedEvent(t *testing.T, conn *sql.DB, id, status string) Event {
	t.Helper()
	e := Event{
		EventID:     id,
		Name:        "Football",
		ScheduledAt: time.Now().Add(time.Hour).UTC(),
		Scores:      map[string]int{"Team A": 1, "Team B": 0},
		Odds:        map[string]decimal.Decimal{"Team A": decimal.RequireFromString("1.80"), "Team B": decimal.RequireFromString("2.40")},
		Status:      status,
	}
	if status == EventCompleted {
		e.Winner = "Team A"
	}
	got, err := NewEventStore().Upsert(context.Background(), conn, e)
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return got
}

func TestLedger_OpenIsIdempotent(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	l := NewLedger()

	if _, err := l.Open(ctx, conn, "alice", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("open: %v", err)
	}
	a, err := l.Open(ctx, conn, "alice", decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !a.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100 kept, got %s", a.Balance)
	}
	if a.Version != 1 {
		t.Fatalf("expected version 1, got %d", a.Version)
	}
}

func TestLedger_GetUnknown(t *testing.T) {
	conn := setupRepoTestDB(t)
	if _, err := NewLedger().Get(context.Background(), conn, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLedger_CompareAndSwap(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	l := NewLedger()
	a, _ := l.Open(ctx, conn, "alice", decimal.NewFromInt(100))

	if err := l.CompareAndSwap(ctx, conn, "alice", a.Version, decimal.NewFromInt(60)); err != nil {
		t.Fatalf("cas: %v", err)
	}
	// versão antiga perde
	if err := l.CompareAndSwap(ctx, conn, "alice", a.Version, decimal.NewFromInt(10)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on stale version, got %v", err)
	}
	if err := l.CompareAndSwap(ctx, conn, "alice", a.Version+1, decimal.NewFromInt(-1)); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("expected ErrNegativeBalance, got %v", err)
	}

	got, _ := l.Get(ctx, conn, "alice")
	if !got.Balance.Equal(decimal.NewFromInt(60)) || got.Version != 2 {
		t.Fatalf("unexpected account %+v", got)
	}
}

func TestLedger_CreditMany(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	l := NewLedger()
	l.Open(ctx, conn, "alice", decimal.NewFromInt(10))
	l.Open(ctx, conn, "bob", decimal.Zero)

	err := l.CreditMany(ctx, conn, map[string]decimal.Decimal{
		"bob":   decimal.RequireFromString("12.5"),
		"alice": decimal.NewFromInt(250),
	})
	if err != nil {
		t.Fatalf("credit many: %v", err)
	}
	alice, _ := l.Get(ctx, conn, "alice")
	bob, _ := l.Get(ctx, conn, "bob")
	if !alice.Balance.Equal(decimal.NewFromInt(260)) {
		t.Errorf("alice: expected 260, got %s", alice.Balance)
	}
	if !bob.Balance.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("bob: expected 12.5, got %s", bob.Balance)
	}
}

func TestEventStore_UpsertAndRead(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	s := NewEventStore()
	seedEvent(t, conn, "event-1", EventUpcoming)

	e, err := s.Get(ctx, conn, "event-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.Scores["Team A"] != 1 || !e.Odds["Team B"].Equal(decimal.RequireFromString("2.4")) {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.Winner != "" {
		t.Fatalf("winner must be empty for upcoming, got %q", e.Winner)
	}

	byName, err := s.GetByName(ctx, conn, "Football")
	if err != nil || byName.EventID != "event-1" {
		t.Fatalf("get by name: %+v %v", byName, err)
	}
	if _, err := s.GetByName(ctx, conn, "Curling"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := s.List(ctx, conn)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %d %v", len(all), err)
	}
}

func TestEventStore_CompletedIsImmutable(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	s := NewEventStore()
	e := seedEvent(t, conn, "event-1", EventCompleted)

	e.Status = EventOngoing
	e.Winner = ""
	if _, err := s.Upsert(ctx, conn, e); !errors.Is(err, ErrEventCompleted) {
		t.Fatalf("upsert: expected ErrEventCompleted, got %v", err)
	}
	if _, err := s.Update(ctx, conn, e); !errors.Is(err, ErrEventCompleted) {
		t.Fatalf("update: expected ErrEventCompleted, got %v", err)
	}
}

func TestEventStore_UpdateVersionCAS(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	s := NewEventStore()
	e := seedEvent(t, conn, "event-1", EventUpcoming)

	e.Scores = map[string]int{"Team A": 2, "Team B": 0}
	updated, err := s.Update(ctx, conn, e)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != e.Version+1 || updated.Scores["Team A"] != 2 {
		t.Fatalf("unexpected update %+v", updated)
	}
	// snapshot antigo
	if _, err := s.Update(ctx, conn, e); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEventStore_WinnerIffCompleted(t *testing.T) {
	conn := setupRepoTestDB(t)
	s := NewEventStore()
	e := seedEvent(t, conn, "event-1", EventUpcoming)

	e.Winner = "Team A"
	if _, err := s.Update(context.Background(), conn, e); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for winner on upcoming, got %v", err)
	}
	e.Winner = ""
	e.Status = EventCompleted
	if _, err := s.Update(context.Background(), conn, e); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for completed without winner, got %v", err)
	}
}

func TestEventStore_HoldOpen(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	s := NewEventStore()
	seedEvent(t, conn, "open", EventUpcoming)
	seedEvent(t, conn, "live", EventOngoing)

	if err := s.HoldOpen(ctx, conn, "open"); err != nil {
		t.Fatalf("hold upcoming: %v", err)
	}
	if err := s.HoldOpen(ctx, conn, "live"); !errors.Is(err, ErrConflict) {
		t.Fatalf("hold ongoing: expected ErrConflict, got %v", err)
	}
	e, _ := s.Get(ctx, conn, "open")
	if e.Version != 1 {
		t.Fatalf("hold must not bump version, got %d", e.Version)
	}
}

func TestStakeStore_PendingLifecycle(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	NewLedger().Open(ctx, conn, "alice", decimal.NewFromInt(100))
	seedEvent(t, conn, "event-1", EventUpcoming)
	s := NewStakeStore()

	st, err := s.Insert(ctx, conn, Stake{
		UserID: "alice", EventID: "event-1", SelectedTeam: "Team A",
		BetAmount: decimal.NewFromInt(10), Odds: decimal.RequireFromString("1.8"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(ctx, conn, Stake{
		UserID: "alice", EventID: "event-1", SelectedTeam: "Team A",
		BetAmount: decimal.NewFromInt(5), Odds: decimal.RequireFromString("1.8"),
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate pending: expected ErrConflict, got %v", err)
	}

	found, err := s.FindPending(ctx, conn, "alice", "event-1", "Team A")
	if err != nil || found.ID != st.ID {
		t.Fatalf("find pending: %+v %v", found, err)
	}
	added, err := s.AddToPending(ctx, conn, found, decimal.NewFromInt(15))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added.BetAmount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected 25, got %s", added.BetAmount)
	}
	// snapshot com valor antigo perde
	if _, err := s.AddToPending(ctx, conn, found, decimal.NewFromInt(1)); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale add: expected ErrConflict, got %v", err)
	}

	us, err := s.ListByUser(ctx, conn, "alice")
	if err != nil || len(us) != 1 {
		t.Fatalf("list by user: %d %v", len(us), err)
	}
	if us[0].EventName != "Football" || us[0].EventStatus != EventUpcoming {
		t.Fatalf("unexpected join %+v", us[0])
	}
}

func TestStakeStore_SettleGuardedByPending(t *testing.T) {
	conn := setupRepoTestDB(t)
	ctx := context.Background()
	NewLedger().Open(ctx, conn, "alice", decimal.NewFromInt(100))
	seedEvent(t, conn, "event-1", EventUpcoming)
	s := NewStakeStore()

	a, _ := s.Insert(ctx, conn, Stake{UserID: "alice", EventID: "event-1", SelectedTeam: "Team A", BetAmount: decimal.NewFromInt(100), Odds: decimal.RequireFromString("2.5")})
	b, _ := s.Insert(ctx, conn, Stake{UserID: "alice", EventID: "event-1", SelectedTeam: "Team B", BetAmount: decimal.NewFromInt(10), Odds: decimal.RequireFromString("1.5")})

	ts := []Transition{
		{StakeID: a.ID, Status: StakeWon, Payout: decimal.NewFromInt(250)},
		{StakeID: b.ID, Status: StakeLost, Payout: decimal.Zero},
	}
	n, err := s.Settle(ctx, conn, ts, time.Now())
	if err != nil || n != 2 {
		t.Fatalf("settle: %d %v", n, err)
	}
	n, err = s.Settle(ctx, conn, ts, time.Now())
	if err != nil || n != 0 {
		t.Fatalf("second settle must touch nothing: %d %v", n, err)
	}

	pending, _ := s.ListPendingByEvent(ctx, conn, "event-1")
	if len(pending) != 0 {
		t.Fatalf("expected no pending stakes, got %d", len(pending))
	}
	all, _ := s.ListByEvent(ctx, conn, "event-1")
	if len(all) != 2 {
		t.Fatalf("expected 2 stakes, got %d", len(all))
	}
	for _, st := range all {
		if st.SettledAt == nil {
			t.Errorf("stake %s missing settled_at", st.ID)
		}
		if st.ID == a.ID && !st.Payout.Equal(decimal.NewFromInt(250)) {
			t.Errorf("expected payout 250, got %s", st.Payout)
		}
	}
}
