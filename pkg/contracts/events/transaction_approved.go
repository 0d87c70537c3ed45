package events

import "time"

// Evento emitido quando o operador aprova um depósito ou retirada.
type TransactionApproved struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Kind          string    `json:"kind"` // "DEPOSIT" | "WITHDRAW"
	AmountCents   int64     `json:"amount_cents"`
	Ts            time.Time `json:"ts"`
}
