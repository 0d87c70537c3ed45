package events

// Evento publicado no tópico "bet_placed" após o débito da aposta ser efetivado
type BetPlaced struct {
	BetID             string  `json:"bet_id"`
	UserID            string  `json:"user_id"`
	Kind              string  `json:"kind"` // "SINGLE" | "COMBO"
	EventID           string  `json:"event_id,omitempty"`
	Selection         string  `json:"selection,omitempty"`
	Legs              int     `json:"legs,omitempty"` // quantidade de pernas (combo)
	StakeCents        int64   `json:"stake_cents"`
	OddValue          float64 `json:"odd_value"` // odd efetiva (produto nas combinadas)
	PotentialWinCents int64   `json:"potential_win_cents"`
	TsUnixMs          int64   `json:"ts_unix_ms"`
}
