package dto

import (
	"github.com/radieske/betting-house-core/internal/bets"
	"github.com/radieske/betting-house-core/internal/transactions"
)

type BalanceResponse struct {
	UserID       string `json:"userId"`
	BalanceCents int64  `json:"balance_cents"`
}

type PlaceBetResponse struct {
	Bet             bets.Bet `json:"bet"`
	NewBalanceCents int64    `json:"new_balance_cents"`
}

type TransactionResponse struct {
	Transaction     transactions.Transaction `json:"transaction"`
	NewBalanceCents *int64                   `json:"new_balance_cents,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
