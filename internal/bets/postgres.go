package bets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/radieske/betting-house-core/internal/catalog"
	"github.com/radieske/betting-house-core/internal/ledger"
)

var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrNoLegs           = errors.New("combo requires at least one leg")
)

// Postgres implementa a colocação e consulta de apostas.
// Débito do stake e insert da aposta acontecem na mesma transação de
// banco: ou os dois entram, ou nenhum.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// PlaceSingle valida evento e saldo e cria uma aposta simples PENDING.
// A linha do evento fica com lock compartilhado até o commit, o que
// coordena com o settlement: ou a aposta entra antes da varredura e é
// liquidada junto, ou já enxerga o evento inativo e é rejeitada.
func (p *Postgres) PlaceSingle(ctx context.Context, userID, eventID, selection string, stakeCents int64) (Bet, int64, error) {
	if stakeCents <= 0 {
		return Bet{}, 0, ledger.ErrInvalidAmount
	}
	if !catalog.ValidSelection(selection) {
		return Bet{}, 0, ErrInvalidSelection
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Bet{}, 0, err
	}
	defer tx.Rollback()

	odds, err := lockEventOdds(ctx, tx, eventID, selection)
	if err != nil {
		return Bet{}, 0, err
	}

	bet := Bet{
		ID:                uuid.NewString(),
		UserID:            userID,
		Kind:              KindSingle,
		EventID:           eventID,
		Selection:         selection,
		OddValue:          odds,
		StakeCents:        stakeCents,
		PotentialWinCents: PotentialWinCents(stakeCents, odds),
		Status:            StatusPending,
	}

	newBalance, err := debitStake(ctx, tx, userID, stakeCents, bet.ID)
	if err != nil {
		return Bet{}, 0, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO bets (id, user_id, kind, event_id, selection, odd_value, stake_cents, potential_win_cents, status)
		VALUES ($1,$2,'SINGLE',$3,$4,$5,$6,$7,'PENDING')
		RETURNING created_at`,
		bet.ID, bet.UserID, bet.EventID, bet.Selection, bet.OddValue, bet.StakeCents, bet.PotentialWinCents).Scan(&bet.CreatedAt)
	if err != nil {
		return Bet{}, 0, err
	}

	if err = tx.Commit(); err != nil {
		return Bet{}, 0, err
	}
	return bet, newBalance, nil
}

// PlaceCombo cria uma aposta combinada PENDING com as pernas embutidas.
// Cada evento das pernas precisa existir e estar ativo; a odd efetiva é
// o produto das odds das pernas.
func (p *Postgres) PlaceCombo(ctx context.Context, userID string, legs []Leg, stakeCents int64) (Bet, int64, error) {
	if stakeCents <= 0 {
		return Bet{}, 0, ledger.ErrInvalidAmount
	}
	if len(legs) == 0 {
		return Bet{}, 0, ErrNoLegs
	}
	for _, l := range legs {
		if !catalog.ValidSelection(l.Selection) {
			return Bet{}, 0, ErrInvalidSelection
		}
		if l.Odds <= 0 {
			return Bet{}, 0, catalog.ErrInvalidOdds
		}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Bet{}, 0, err
	}
	defer tx.Rollback()

	// trava todas as pernas antes de tocar no saldo (ordem eventos -> usuário)
	for _, l := range legs {
		if _, err := lockEventOdds(ctx, tx, l.EventID, l.Selection); err != nil {
			return Bet{}, 0, fmt.Errorf("leg %s: %w", l.EventID, err)
		}
	}

	totalOdds := ComboOdds(legs)
	legsJSON, err := json.Marshal(legs)
	if err != nil {
		return Bet{}, 0, err
	}

	bet := Bet{
		ID:                uuid.NewString(),
		UserID:            userID,
		Kind:              KindCombo,
		Legs:              legs,
		OddValue:          totalOdds,
		StakeCents:        stakeCents,
		PotentialWinCents: PotentialWinCents(stakeCents, totalOdds),
		Status:            StatusPending,
	}

	newBalance, err := debitStake(ctx, tx, userID, stakeCents, bet.ID)
	if err != nil {
		return Bet{}, 0, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO bets (id, user_id, kind, legs, odd_value, stake_cents, potential_win_cents, status)
		VALUES ($1,$2,'COMBO',$3,$4,$5,$6,'PENDING')
		RETURNING created_at`,
		bet.ID, bet.UserID, legsJSON, bet.OddValue, bet.StakeCents, bet.PotentialWinCents).Scan(&bet.CreatedAt)
	if err != nil {
		return Bet{}, 0, err
	}

	if err = tx.Commit(); err != nil {
		return Bet{}, 0, err
	}
	return bet, newBalance, nil
}

// ListForUser retorna as apostas do usuário, mais recentes primeiro
func (p *Postgres) ListForUser(ctx context.Context, userID string) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, kind, COALESCE(event_id,''), COALESCE(selection,''),
		       COALESCE(odd_value,0), legs, stake_cents, potential_win_cents, status, created_at
		FROM bets WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		var b Bet
		var legsJSON []byte
		if err := rows.Scan(&b.ID, &b.UserID, &b.Kind, &b.EventID, &b.Selection,
			&b.OddValue, &legsJSON, &b.StakeCents, &b.PotentialWinCents, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		if len(legsJSON) > 0 {
			if err := json.Unmarshal(legsJSON, &b.Legs); err != nil {
				return nil, err
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// lockEventOdds carrega a odd da seleção com lock compartilhado na linha
// do evento. FOR SHARE deixa apostas concorrentes no mesmo evento
// prosseguirem, mas conflita com o FOR UPDATE do settlement.
func lockEventOdds(ctx context.Context, tx *sql.Tx, eventID, selection string) (float64, error) {
	var home, draw, away float64
	var active bool
	err := tx.QueryRowContext(ctx, `
		SELECT odds_home, odds_draw, odds_away, is_active
		FROM events WHERE id=$1 FOR SHARE`, eventID).Scan(&home, &draw, &away, &active)
	if err == sql.ErrNoRows {
		return 0, catalog.ErrEventNotFound
	}
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, catalog.ErrEventInactive
	}

	switch selection {
	case catalog.SelectionLocal:
		return home, nil
	case catalog.SelectionDraw:
		return draw, nil
	case catalog.SelectionAway:
		return away, nil
	}
	return 0, ErrInvalidSelection
}

func debitStake(ctx context.Context, tx *sql.Tx, userID string, stakeCents int64, betID string) (int64, error) {
	bal, err := ledger.LockUserTx(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	return ledger.DebitTx(ctx, tx, userID, bal, stakeCents, "bet:"+betID)
}
