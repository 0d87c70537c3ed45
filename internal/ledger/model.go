package ledger

import "time"

// User é a linha persistida na tabela users.
// Saldo em centavos; nunca fica negativo por operação do ledger.
type User struct {
	ID           string
	Username     string
	FirstName    string
	BalanceCents int64
	CreatedAt    time.Time
}

// Entry é uma linha do extrato (ledger_entries), append-only.
type Entry struct {
	ID            int64
	UserID        string
	OperationType string // "CREDIT" | "DEBIT"
	AmountCents   int64
	Description   string
	CreatedAt     time.Time
}
