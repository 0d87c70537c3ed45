package catalog

import "time"

// Event é um evento apostável persistido na tabela events.
// is_active vira false uma única vez, quando o settlement encerra o evento.
type Event struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"externalId,omitempty"`
	Name       string     `json:"name"`
	OddsHome   float64    `json:"odds_home"`
	OddsDraw   float64    `json:"odds_draw"`
	OddsAway   float64    `json:"odds_away"`
	IsActive   bool       `json:"is_active"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`

	// Resultado gravado no settlement; nil enquanto o evento está ativo
	ResultHome *int    `json:"result_home,omitempty"`
	ResultAway *int    `json:"result_away,omitempty"`
	Winner     *string `json:"winner,omitempty"` // "local" | "draw" | "away"
}

// Seleções válidas de uma aposta 1x2.
const (
	SelectionLocal = "local"
	SelectionDraw  = "draw"
	SelectionAway  = "away"
)

// ValidSelection valida a seleção vinda do front-end.
func ValidSelection(s string) bool {
	return s == SelectionLocal || s == SelectionDraw || s == SelectionAway
}
