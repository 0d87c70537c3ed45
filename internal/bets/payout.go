package bets

import "math"

// PotentialWinCents calcula o retorno potencial: stake x odd, em centavos,
// arredondado para o centavo mais próximo.
func PotentialWinCents(stakeCents int64, odds float64) int64 {
	return int64(math.Round(float64(stakeCents) * odds))
}

// ComboOdds é a odd efetiva de uma combinada: produto das odds das pernas.
func ComboOdds(legs []Leg) float64 {
	total := 1.0
	for _, l := range legs {
		total *= l.Odds
	}
	return total
}
