package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventInactive = errors.New("event inactive")
	ErrInvalidOdds   = errors.New("invalid odds")
)

// Postgres implementa a persistência do catálogo de eventos
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// InsertFromProvider insere um evento vindo do sync, idempotente por
// external_id. Odds da primeira ingestão são as que valem: um resync do
// mesmo external_id não atualiza nada (inserted=false).
func (p *Postgres) InsertFromProvider(ctx context.Context, externalID, name string, oddsHome, oddsDraw, oddsAway float64, startsAt time.Time) (inserted bool, err error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO events (id, external_id, name, odds_home, odds_draw, odds_away, is_active, starts_at)
		VALUES ($1,$2,$3,$4,$5,$6,TRUE,$7)
		ON CONFLICT (external_id) DO NOTHING`,
		uuid.NewString(), externalID, name, oddsHome, oddsDraw, oddsAway, startsAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Create insere um evento criado manualmente pelo operador (sem external_id)
func (p *Postgres) Create(ctx context.Context, name string, oddsHome, oddsDraw, oddsAway float64) (Event, error) {
	if oddsHome <= 0 || oddsDraw <= 0 || oddsAway <= 0 {
		return Event{}, ErrInvalidOdds
	}
	ev := Event{
		ID:       uuid.NewString(),
		Name:     name,
		OddsHome: oddsHome,
		OddsDraw: oddsDraw,
		OddsAway: oddsAway,
		IsActive: true,
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO events (id, name, odds_home, odds_draw, odds_away, is_active)
		VALUES ($1,$2,$3,$4,$5,TRUE)`,
		ev.ID, ev.Name, ev.OddsHome, ev.OddsDraw, ev.OddsAway)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

// GetByExternalID busca um evento pelo identificador do provider
func (p *Postgres) GetByExternalID(ctx context.Context, externalID string) (Event, error) {
	return p.getWhere(ctx, `external_id=$1`, externalID)
}

// GetByID busca um evento pelo id interno
func (p *Postgres) GetByID(ctx context.Context, id string) (Event, error) {
	return p.getWhere(ctx, `id=$1`, id)
}

func (p *Postgres) getWhere(ctx context.Context, where string, arg any) (Event, error) {
	var ev Event
	var extID sql.NullString
	var startsAt sql.NullTime
	var winner sql.NullString
	var rh, ra sql.NullInt64
	err := p.db.QueryRowContext(ctx, `
		SELECT id, external_id, name, odds_home, odds_draw, odds_away, is_active,
		       starts_at, result_home, result_away, winner
		FROM events WHERE `+where, arg).Scan(
		&ev.ID, &extID, &ev.Name, &ev.OddsHome, &ev.OddsDraw, &ev.OddsAway, &ev.IsActive,
		&startsAt, &rh, &ra, &winner)
	if err == sql.ErrNoRows {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		return Event{}, err
	}
	ev.ExternalID = extID.String
	if startsAt.Valid {
		t := startsAt.Time
		ev.StartsAt = &t
	}
	if rh.Valid {
		h := int(rh.Int64)
		ev.ResultHome = &h
	}
	if ra.Valid {
		a := int(ra.Int64)
		ev.ResultAway = &a
	}
	if winner.Valid {
		w := winner.String
		ev.Winner = &w
	}
	return ev, nil
}

// ListActive retorna os eventos ainda apostáveis
func (p *Postgres) ListActive(ctx context.Context) ([]Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, COALESCE(external_id,''), name, odds_home, odds_draw, odds_away, starts_at
		FROM events WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev := Event{IsActive: true}
		var startsAt sql.NullTime
		if err := rows.Scan(&ev.ID, &ev.ExternalID, &ev.Name, &ev.OddsHome, &ev.OddsDraw, &ev.OddsAway, &startsAt); err != nil {
			return nil, err
		}
		if startsAt.Valid {
			t := startsAt.Time
			ev.StartsAt = &t
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Deactivate desliga o flag de atividade; no-op se o evento já está inativo
func (p *Postgres) Deactivate(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE events SET is_active=FALSE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// distingue "não existe" de "já inativo"
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT TRUE FROM events WHERE id=$1`, id).Scan(&exists); err == sql.ErrNoRows {
			return ErrEventNotFound
		}
	}
	return nil
}

// UpdateOdds é o override manual de odds pelo operador
func (p *Postgres) UpdateOdds(ctx context.Context, id string, oddsHome, oddsDraw, oddsAway float64) error {
	if oddsHome <= 0 || oddsDraw <= 0 || oddsAway <= 0 {
		return ErrInvalidOdds
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE events SET odds_home=$1, odds_draw=$2, odds_away=$3 WHERE id=$4`,
		oddsHome, oddsDraw, oddsAway, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update odds %s: %w", id, ErrEventNotFound)
	}
	return nil
}
