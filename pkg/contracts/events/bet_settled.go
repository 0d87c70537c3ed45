package events

import "time"

// Evento emitido pelo settlement após resolver uma aposta pendente.
type BetSettled struct {
	BetID       string    `json:"betId"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"` // "WON" | "LOST"
	PayoutCents int64     `json:"payout_cents,omitempty"`
	EventID     string    `json:"eventId,omitempty"` // vazio nas combinadas
	Ts          time.Time `json:"ts"`
}
