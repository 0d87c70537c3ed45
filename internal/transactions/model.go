package transactions

import "time"

const (
	KindDeposit  = "DEPOSIT"
	KindWithdraw = "WITHDRAW"

	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
)

// Transaction é um pedido de depósito ou retirada.
// Status anda uma única vez: PENDING -> APPROVED; nunca volta.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	AccountInfo string    `json:"account_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
