package dto

// Payloads aceitos pela API pública e pela superfície admin.
// Valores monetários sempre em centavos.

type RegisterRequest struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
}

type PlaceSingleRequest struct {
	UserID     string `json:"userId"`
	EventID    string `json:"eventId"`
	Selection  string `json:"selection"` // "local" | "draw" | "away"
	StakeCents int64  `json:"stake_cents"`
}

type ComboLeg struct {
	EventID   string  `json:"eventId"`
	Selection string  `json:"selection"`
	Odds      float64 `json:"odds"` // odd que o cliente viu
}

type PlaceComboRequest struct {
	UserID     string     `json:"userId"`
	Legs       []ComboLeg `json:"legs"`
	StakeCents int64      `json:"stake_cents"`
}

type DepositRequest struct {
	UserID      string `json:"userId"`
	AccountInfo string `json:"account_info,omitempty"`
}

type WithdrawRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
}

type ApproveDepositRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type CreateEventRequest struct {
	Name     string  `json:"name"`
	OddsHome float64 `json:"odds_home"`
	OddsDraw float64 `json:"odds_draw"`
	OddsAway float64 `json:"odds_away"`
}

type UpdateOddsRequest struct {
	OddsHome float64 `json:"odds_home"`
	OddsDraw float64 `json:"odds_draw"`
	OddsAway float64 `json:"odds_away"`
}
