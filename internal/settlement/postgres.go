package settlement

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/radieske/betting-house-core/internal/bets"
	"github.com/radieske/betting-house-core/internal/ledger"
)

// SettledBet é o resultado da liquidação de uma aposta individual.
type SettledBet struct {
	BetID       string
	UserID      string
	Status      string // WON | LOST
	PayoutCents int64
}

// EventSettlement resume a liquidação de um evento.
type EventSettlement struct {
	EventID        string
	Winner         string
	AlreadySettled bool // evento já estava inativo; ciclo não fez nada
	Bets           []SettledBet
}

// LegState é o estado de um evento referenciado por perna de combinada.
type LegState struct {
	Active bool
	Winner string // vazio enquanto não liquidado
}

// PendingCombo é uma combinada ainda PENDING aguardando resolução.
type PendingCombo struct {
	BetID             string
	UserID            string
	Legs              []bets.Leg
	PotentialWinCents int64
}

// Postgres implementa a liquidação em banco.
// Varredura das apostas, crédito dos vencedores e flip do flag de
// atividade acontecem numa única transação por evento.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// SettleEvent liquida as apostas simples pendentes de um evento encerrado.
// O lock FOR UPDATE condicionado a is_active é o que garante idempotência:
// reprocessar um evento já inativo não encontra linha e não faz nada,
// mesmo que o provider continue devolvendo o mesmo resultado.
func (p *Postgres) SettleEvent(ctx context.Context, externalID string, homeScore, awayScore int) (EventSettlement, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return EventSettlement{}, err
	}
	defer tx.Rollback()

	var eventID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM events WHERE external_id=$1 AND is_active FOR UPDATE`, externalID).Scan(&eventID)
	if err == sql.ErrNoRows {
		return EventSettlement{AlreadySettled: true}, nil
	}
	if err != nil {
		return EventSettlement{}, err
	}

	winner := WinnerLabel(homeScore, awayScore)
	out := EventSettlement{EventID: eventID, Winner: winner}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_id, selection, potential_win_cents
		FROM bets
		WHERE event_id=$1 AND kind='SINGLE' AND status='PENDING'
		FOR UPDATE`, eventID)
	if err != nil {
		return EventSettlement{}, err
	}
	var pending []SettledBet
	var selections []string
	for rows.Next() {
		var b SettledBet
		var sel string
		if err := rows.Scan(&b.BetID, &b.UserID, &sel, &b.PayoutCents); err != nil {
			rows.Close()
			return EventSettlement{}, err
		}
		pending = append(pending, b)
		selections = append(selections, sel)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return EventSettlement{}, err
	}

	for i, b := range pending {
		if selections[i] == winner {
			b.Status = bets.StatusWon
			if _, err := ledger.CreditTx(ctx, tx, b.UserID, b.PayoutCents, "payout:"+b.BetID); err != nil {
				return EventSettlement{}, err
			}
		} else {
			b.Status = bets.StatusLost
			b.PayoutCents = 0
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE bets SET status=$1, updated_at=NOW() WHERE id=$2`, b.Status, b.BetID); err != nil {
			return EventSettlement{}, err
		}
		out.Bets = append(out.Bets, b)
	}

	// resultado fica gravado no evento; a resolução de combinadas lê daqui
	if _, err := tx.ExecContext(ctx, `
		UPDATE events SET is_active=FALSE, result_home=$1, result_away=$2, winner=$3 WHERE id=$4`,
		homeScore, awayScore, winner, eventID); err != nil {
		return EventSettlement{}, err
	}

	return out, tx.Commit()
}

// PendingCombos lista as combinadas ainda pendentes
func (p *Postgres) PendingCombos(ctx context.Context) ([]PendingCombo, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, legs, potential_win_cents
		FROM bets WHERE kind='COMBO' AND status='PENDING'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingCombo
	for rows.Next() {
		var c PendingCombo
		var legsJSON []byte
		if err := rows.Scan(&c.BetID, &c.UserID, &legsJSON, &c.PotentialWinCents); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(legsJSON, &c.Legs); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LegStates retorna atividade e vencedor dos eventos informados
func (p *Postgres) LegStates(ctx context.Context, eventIDs []string) (map[string]LegState, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, is_active, COALESCE(winner,'') FROM events WHERE id = ANY($1)`,
		pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]LegState, len(eventIDs))
	for rows.Next() {
		var id string
		var st LegState
		if err := rows.Scan(&id, &st.Active, &st.Winner); err != nil {
			return nil, err
		}
		out[id] = st
	}
	return out, rows.Err()
}

// ResolveCombo transiciona uma combinada PENDING para WON/LOST, creditando
// o retorno quando vencedora. Idempotente: aposta já resolvida é ignorada.
func (p *Postgres) ResolveCombo(ctx context.Context, betID string, won bool, payoutCents int64) (resolved bool, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var userID, status string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, status FROM bets WHERE id=$1 FOR UPDATE`, betID).Scan(&userID, &status)
	if err != nil {
		return false, err
	}
	if status != bets.StatusPending {
		return false, nil
	}

	newStatus := bets.StatusLost
	if won {
		newStatus = bets.StatusWon
		if _, err := ledger.CreditTx(ctx, tx, userID, payoutCents, "payout:"+betID); err != nil {
			return false, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bets SET status=$1, updated_at=NOW() WHERE id=$2`, newStatus, betID); err != nil {
		return false, err
	}

	return true, tx.Commit()
}
