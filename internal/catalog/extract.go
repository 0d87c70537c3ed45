package catalog

import (
	"strings"

	"github.com/radieske/betting-house-core/internal/provider"
)

// ExtractH2H aplica a política de ingestão de odds de uma fixture:
// vale o primeiro mercado head-to-head da primeira casa que tiver um.
// Fixtures sem mercado h2h completo são puladas (ok=false).
func ExtractH2H(f provider.Fixture) (home, draw, away float64, ok bool) {
	for _, bk := range f.Bookmakers {
		for _, mk := range bk.Markets {
			if mk.Key != "h2h" {
				continue
			}
			home, draw, away, ok = pickOutcomes(f, mk.Outcomes)
			return home, draw, away, ok
		}
	}
	return 0, 0, 0, false
}

// pickOutcomes casa os três resultados do mercado com home/draw/away.
// O empate vem nomeado "Draw"; os demais casam pelo nome do time.
func pickOutcomes(f provider.Fixture, outcomes []provider.Outcome) (home, draw, away float64, ok bool) {
	for _, o := range outcomes {
		switch {
		case strings.EqualFold(o.Name, "Draw"):
			draw = o.Price
		case strings.EqualFold(o.Name, f.HomeTeam):
			home = o.Price
		case strings.EqualFold(o.Name, f.AwayTeam):
			away = o.Price
		}
	}
	if home <= 0 || draw <= 0 || away <= 0 {
		return 0, 0, 0, false
	}
	return home, draw, away, true
}
