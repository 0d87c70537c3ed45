package bets

import "time"

const (
	KindSingle = "SINGLE"
	KindCombo  = "COMBO"

	StatusPending = "PENDING"
	StatusWon     = "WON"
	StatusLost    = "LOST"
)

// Leg é uma perna de aposta combinada: evento, seleção e a odd travada
// no momento da aposta. A lista é imutável e ordenada.
type Leg struct {
	EventID   string  `json:"event_id"`
	Selection string  `json:"selection"`
	Odds      float64 `json:"odds"`
}

// Bet é a aposta persistida. Simples referencia um evento e uma seleção;
// combinada embute a lista de pernas e paga só se todas vencerem.
type Bet struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Kind              string    `json:"kind"`
	EventID           string    `json:"eventId,omitempty"`
	Selection         string    `json:"selection,omitempty"`
	OddValue          float64   `json:"odd_value,omitempty"`
	Legs              []Leg     `json:"legs,omitempty"`
	StakeCents        int64     `json:"stake_cents"`
	PotentialWinCents int64     `json:"potential_win_cents"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
