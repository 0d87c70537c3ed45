package ledger

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Postgres implementa as operações de saldo em banco.
// Toda mutação registra uma linha de extrato na mesma transação.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Register cria o usuário na primeira interação ou atualiza nome/username
// Saldo inicial zero; chamadas repetidas são inofensivas
func (p *Postgres) Register(ctx context.Context, userID, username, firstName string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, balance_cents)
		VALUES ($1,$2,$3,0)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name`,
		userID, username, firstName)
	return err
}

// GetBalance lê o saldo atual do usuário; sem efeito colateral
func (p *Postgres) GetBalance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := p.db.QueryRowContext(ctx, `SELECT balance_cents FROM users WHERE id=$1`, userID).Scan(&bal)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	return bal, err
}

// Credit incrementa o saldo e registra a operação no extrato
func (p *Postgres) Credit(ctx context.Context, userID string, amountCents int64, description string) (newBalance int64, err error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err = lockUser(ctx, tx, userID, &newBalance); err != nil {
		return 0, err
	}

	newBalance += amountCents
	if err = applyBalance(ctx, tx, userID, newBalance); err != nil {
		return 0, err
	}
	if err = insertEntry(ctx, tx, userID, "CREDIT", amountCents, description); err != nil {
		return 0, err
	}

	return newBalance, tx.Commit()
}

// Debit decrementa o saldo com verificação de fundos na mesma transação.
// O lock pessimista da linha do usuário impede dois débitos concorrentes
// passarem na checagem contra um saldo desatualizado.
func (p *Postgres) Debit(ctx context.Context, userID string, amountCents int64, description string) (newBalance int64, err error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var bal int64
	if err = lockUser(ctx, tx, userID, &bal); err != nil {
		return 0, err
	}
	if bal < amountCents {
		return 0, ErrInsufficientFunds
	}

	newBalance = bal - amountCents
	if err = applyBalance(ctx, tx, userID, newBalance); err != nil {
		return 0, err
	}
	if err = insertEntry(ctx, tx, userID, "DEBIT", amountCents, description); err != nil {
		return 0, err
	}

	return newBalance, tx.Commit()
}

// lockUser carrega o saldo com FOR UPDATE dentro da transação dada.
// Compartilhado com os repositórios de apostas e transações, que fazem
// check-and-mutate de saldo junto com suas próprias tabelas.
func lockUser(ctx context.Context, tx *sql.Tx, userID string, balance *int64) error {
	err := tx.QueryRowContext(ctx, `SELECT balance_cents FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(balance)
	if err == sql.ErrNoRows {
		return ErrUserNotFound
	}
	return err
}

func applyBalance(ctx context.Context, tx *sql.Tx, userID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET balance_cents=$1 WHERE id=$2`, balance, userID)
	return err
}

func insertEntry(ctx context.Context, tx *sql.Tx, userID, op string, amountCents int64, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (user_id, operation_type, amount_cents, description)
		VALUES ($1,$2,$3,$4)`, userID, op, amountCents, description)
	return err
}

// LockUserTx expõe o lock de saldo para operações compostas de outros
// repositórios (aposta, retirada) que rodam na própria transação.
func LockUserTx(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	var bal int64
	err := lockUser(ctx, tx, userID, &bal)
	return bal, err
}

// DebitTx debita dentro de uma transação externa já com a linha travada.
func DebitTx(ctx context.Context, tx *sql.Tx, userID string, balance, amountCents int64, description string) (int64, error) {
	if balance < amountCents {
		return 0, ErrInsufficientFunds
	}
	newBalance := balance - amountCents
	if err := applyBalance(ctx, tx, userID, newBalance); err != nil {
		return 0, err
	}
	if err := insertEntry(ctx, tx, userID, "DEBIT", amountCents, description); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// CreditTx credita dentro de uma transação externa (payout do settlement,
// aprovação de depósito). A linha do usuário é travada aqui.
func CreditTx(ctx context.Context, tx *sql.Tx, userID string, amountCents int64, description string) (int64, error) {
	var bal int64
	if err := lockUser(ctx, tx, userID, &bal); err != nil {
		return 0, err
	}
	newBalance := bal + amountCents
	if err := applyBalance(ctx, tx, userID, newBalance); err != nil {
		return 0, err
	}
	if err := insertEntry(ctx, tx, userID, "CREDIT", amountCents, description); err != nil {
		return 0, err
	}
	return newBalance, nil
}
