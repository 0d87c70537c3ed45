package topics

const (
	// Bets
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Transações (depósito/retirada aprovados pelo operador)
	TransactionApproved = "transaction_approved"
)
