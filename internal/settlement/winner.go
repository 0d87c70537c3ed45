package settlement

import "github.com/radieske/betting-house-core/internal/catalog"

// WinnerLabel converte um placar final no rótulo vencedor do mercado 1x2.
func WinnerLabel(homeScore, awayScore int) string {
	switch {
	case homeScore > awayScore:
		return catalog.SelectionLocal
	case homeScore < awayScore:
		return catalog.SelectionAway
	default:
		return catalog.SelectionDraw
	}
}
