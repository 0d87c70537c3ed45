package transactions

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/radieske/betting-house-core/internal/ledger"
)

var (
	ErrNotFound     = errors.New("transaction not found")
	ErrInvalidState = errors.New("invalid transaction state")
)

// Postgres implementa o ciclo de vida de depósitos e retiradas.
// Depósito só credita na aprovação; retirada debita já no pedido (escrow),
// então a aprovação da retirada não mexe em saldo.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// RequestDeposit cria um depósito PENDING com valor zero.
// O valor real só é conhecido quando o operador confere o comprovante.
func (p *Postgres) RequestDeposit(ctx context.Context, userID, accountInfo string) (Transaction, error) {
	t := Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        KindDeposit,
		Status:      StatusPending,
		AccountInfo: accountInfo,
	}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount_cents, status, account_info)
		VALUES ($1,$2,'DEPOSIT',0,'PENDING',$3)
		RETURNING created_at`,
		t.ID, t.UserID, t.AccountInfo).Scan(&t.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// RequestWithdraw debita o valor na hora do pedido (reserva) e cria a
// retirada PENDING na mesma transação de banco. Se o insert falhar, o
// rollback desfaz o débito junto.
func (p *Postgres) RequestWithdraw(ctx context.Context, userID string, amountCents int64) (Transaction, int64, error) {
	if amountCents <= 0 {
		return Transaction{}, 0, ledger.ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, 0, err
	}
	defer tx.Rollback()

	bal, err := ledger.LockUserTx(ctx, tx, userID)
	if err != nil {
		return Transaction{}, 0, err
	}

	t := Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        KindWithdraw,
		AmountCents: amountCents,
		Status:      StatusPending,
	}

	newBalance, err := ledger.DebitTx(ctx, tx, userID, bal, amountCents, "withdraw:"+t.ID)
	if err != nil {
		return Transaction{}, 0, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount_cents, status)
		VALUES ($1,$2,'WITHDRAW',$3,'PENDING')
		RETURNING created_at`,
		t.ID, t.UserID, t.AmountCents).Scan(&t.CreatedAt)
	if err != nil {
		return Transaction{}, 0, err
	}

	if err = tx.Commit(); err != nil {
		return Transaction{}, 0, err
	}
	return t, newBalance, nil
}

// ApproveDeposit credita o usuário e marca a transação como APPROVED.
// A linha da transação fica travada durante a checagem de estado, então
// aprovar duas vezes nunca credita em dobro.
func (p *Postgres) ApproveDeposit(ctx context.Context, transactionID string, amountCents int64) (Transaction, error) {
	if amountCents <= 0 {
		return Transaction{}, ledger.ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	t, err := lockTransaction(ctx, tx, transactionID)
	if err != nil {
		return Transaction{}, err
	}
	if t.Kind != KindDeposit || t.Status != StatusPending {
		return Transaction{}, ErrInvalidState
	}

	if _, err = ledger.CreditTx(ctx, tx, t.UserID, amountCents, "deposit:"+t.ID); err != nil {
		return Transaction{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE transactions SET status='APPROVED', amount_cents=$1 WHERE id=$2`,
		amountCents, t.ID); err != nil {
		return Transaction{}, err
	}

	if err = tx.Commit(); err != nil {
		return Transaction{}, err
	}
	t.Status = StatusApproved
	t.AmountCents = amountCents
	return t, nil
}

// ApproveWithdraw só marca APPROVED: o débito já aconteceu no pedido
func (p *Postgres) ApproveWithdraw(ctx context.Context, transactionID string) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	t, err := lockTransaction(ctx, tx, transactionID)
	if err != nil {
		return Transaction{}, err
	}
	if t.Kind != KindWithdraw || t.Status != StatusPending {
		return Transaction{}, ErrInvalidState
	}

	if _, err = tx.ExecContext(ctx, `UPDATE transactions SET status='APPROVED' WHERE id=$1`, t.ID); err != nil {
		return Transaction{}, err
	}

	if err = tx.Commit(); err != nil {
		return Transaction{}, err
	}
	t.Status = StatusApproved
	return t, nil
}

// ListForUser retorna o histórico de transações do usuário
func (p *Postgres) ListForUser(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount_cents, status, COALESCE(account_info,''), created_at
		FROM transactions WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.AmountCents, &t.Status, &t.AccountInfo, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func lockTransaction(ctx context.Context, tx *sql.Tx, id string) (Transaction, error) {
	var t Transaction
	var account sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT id, user_id, kind, amount_cents, status, account_info, created_at
		FROM transactions WHERE id=$1 FOR UPDATE`, id).Scan(
		&t.ID, &t.UserID, &t.Kind, &t.AmountCents, &t.Status, &account, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	t.AccountInfo = account.String
	return t, nil
}
