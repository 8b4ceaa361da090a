package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/radieske/sports-trade-engine/internal/shared/db"
	"github.com/shopspring/decimal"
)

// StakeStore guarda as apostas. Existe no máximo uma pendente por
// (user_id, event_id, selected_team), garantido pelo índice parcial.
type StakeStore struct{}

func NewStakeStore() *StakeStore { return &StakeStore{} }

const stakeColumns = `s.id, s.user_id, s.event_id, s.selected_team, s.bet_amount, s.odds, s.status, s.payout, s.created_at, s.updated_at, s.settled_at`

func scanStake(r rowScanner, extra ...any) (Stake, error) {
	var (
		st        Stake
		settledAt sql.NullTime
	)
	dest := []any{&st.ID, &st.UserID, &st.EventID, &st.SelectedTeam, &st.BetAmount, &st.Odds, &st.Status, &st.Payout, &st.CreatedAt, &st.UpdatedAt, &settledAt}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return Stake{}, err
	}
	if settledAt.Valid {
		t := settledAt.Time
		st.SettledAt = &t
	}
	return st, nil
}

func (s *StakeStore) list(ctx context.Context, q db.Querier, query string, args ...any) ([]Stake, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Stake{}
	for rows.Next() {
		st, err := scanStake(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// FindPending retorna a aposta pendente da tripla ou ErrNotFound
func (s *StakeStore) FindPending(ctx context.Context, q db.Querier, userID, eventID, team string) (Stake, error) {
	st, err := scanStake(q.QueryRowContext(ctx, `
		SELECT `+stakeColumns+` FROM stakes s
		WHERE s.user_id=$1 AND s.event_id=$2 AND s.selected_team=$3 AND s.status='pending'`,
		userID, eventID, team))
	if errors.Is(err, sql.ErrNoRows) {
		return Stake{}, ErrNotFound
	}
	if err != nil {
		return Stake{}, fmt.Errorf("find pending stake: %w", err)
	}
	return st, nil
}

// Insert cria uma aposta pendente. Violação do índice da tripla vira ErrConflict:
// outra transação criou a mesma aposta entre a leitura e a escrita.
func (s *StakeStore) Insert(ctx context.Context, q db.Querier, st Stake) (Stake, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	st.Status = StakePending
	st.Payout = decimal.Zero
	st.CreatedAt, st.UpdatedAt = now, now

	if _, err := q.ExecContext(ctx, `
		INSERT INTO stakes (id, user_id, event_id, selected_team, bet_amount, odds, status, payout, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $8)`,
		st.ID, st.UserID, st.EventID, st.SelectedTeam, st.BetAmount, st.Odds, st.Payout, now,
	); err != nil {
		if db.IsUniqueViolation(err) || db.IsConflict(err) {
			return Stake{}, ErrConflict
		}
		return Stake{}, fmt.Errorf("insert stake: %w", err)
	}
	return st, nil
}

// AddToPending soma amount à aposta, desde que ela continue pendente
func (s *StakeStore) AddToPending(ctx context.Context, q db.Querier, st Stake, amount decimal.Decimal) (Stake, error) {
	total := st.BetAmount.Add(amount)
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE stakes SET bet_amount=$1, updated_at=$2
		WHERE id=$3 AND bet_amount=$4 AND status='pending'`,
		total, now, st.ID, st.BetAmount,
	)
	if err != nil {
		if db.IsConflict(err) {
			return Stake{}, ErrConflict
		}
		return Stake{}, fmt.Errorf("add to stake %s: %w", st.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Stake{}, fmt.Errorf("add to stake %s: %w", st.ID, err)
	}
	if n == 0 {
		return Stake{}, ErrConflict
	}
	st.BetAmount = total
	st.UpdatedAt = now
	return st, nil
}

// ListPendingByEvent retorna as apostas pendentes de um evento
func (s *StakeStore) ListPendingByEvent(ctx context.Context, q db.Querier, eventID string) ([]Stake, error) {
	out, err := s.list(ctx, q, `
		SELECT `+stakeColumns+` FROM stakes s
		WHERE s.event_id=$1 AND s.status='pending'
		ORDER BY s.created_at, s.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list pending stakes of %s: %w", eventID, err)
	}
	return out, nil
}

// ListByEvent retorna todas as apostas de um evento (visão do operador)
func (s *StakeStore) ListByEvent(ctx context.Context, q db.Querier, eventID string) ([]Stake, error) {
	out, err := s.list(ctx, q, `
		SELECT `+stakeColumns+` FROM stakes s
		WHERE s.event_id=$1
		ORDER BY s.created_at, s.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list stakes of %s: %w", eventID, err)
	}
	return out, nil
}

// ListByUser retorna as apostas do usuário, mais recentes primeiro, com os dados do evento
func (s *StakeStore) ListByUser(ctx context.Context, q db.Querier, userID string) ([]UserStake, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+stakeColumns+`, e.name, e.scheduled_at, e.status
		FROM stakes s JOIN events e ON e.event_id = s.event_id
		WHERE s.user_id=$1
		ORDER BY s.created_at DESC, s.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list stakes of user %s: %w", userID, err)
	}
	defer rows.Close()

	out := []UserStake{}
	for rows.Next() {
		var us UserStake
		st, err := scanStake(rows, &us.EventName, &us.EventDate, &us.EventStatus)
		if err != nil {
			return nil, fmt.Errorf("scan user stake: %w", err)
		}
		us.Stake = st
		out = append(out, us)
	}
	return out, rows.Err()
}

// Settle aplica as transições com status absolutos, cada uma condicionada a
// status='pending'. Retorna quantas linhas mudaram; o chamador compara com o
// número de apostas lidas para detectar outro liquidante.
func (s *StakeStore) Settle(ctx context.Context, q db.Querier, transitions []Transition, at time.Time) (int64, error) {
	if len(transitions) == 0 {
		return 0, nil
	}
	stmt, err := q.PrepareContext(ctx, `
		UPDATE stakes SET status=$1, payout=$2, updated_at=$3, settled_at=$3
		WHERE id=$4 AND status='pending'`)
	if err != nil {
		return 0, fmt.Errorf("prepare settle: %w", err)
	}
	defer stmt.Close()

	at = at.UTC()
	var total int64
	for _, t := range transitions {
		res, err := stmt.ExecContext(ctx, t.Status, t.Payout, at, t.StakeID)
		if err != nil {
			if db.IsConflict(err) {
				return total, ErrConflict
			}
			return total, fmt.Errorf("settle stake %s: %w", t.StakeID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("settle stake %s: %w", t.StakeID, err)
		}
		total += n
	}
	return total, nil
}
