package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betting-house-core/internal/bets"
	"github.com/radieske/betting-house-core/internal/provider"
	ev "github.com/radieske/betting-house-core/pkg/contracts/events"
)

// ResultsSource abstrai o provider de resultados para o engine
type ResultsSource interface {
	Results(ctx context.Context) ([]provider.Result, error)
}

// Store são as operações de banco usadas pelo ciclo de liquidação
type Store interface {
	SettleEvent(ctx context.Context, externalID string, homeScore, awayScore int) (EventSettlement, error)
	PendingCombos(ctx context.Context) ([]PendingCombo, error)
	LegStates(ctx context.Context, eventIDs []string) (map[string]LegState, error)
	ResolveCombo(ctx context.Context, betID string, won bool, payoutCents int64) (bool, error)
}

// Publisher emite eventos bet_settled; pode ser nil em testes
type Publisher interface {
	PublishBetSettled(ctx context.Context, e ev.BetSettled) error
}

// Invalidator derruba o cache de eventos ativos quando algum evento encerra
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Engine roda a liquidação em intervalo fixo, independente das ações de
// usuário. Cada ciclo busca resultados encerrados no provider, liquida as
// apostas simples por evento e depois resolve as combinadas cujas pernas
// já têm vencedor gravado.
type Engine struct {
	Log      *zap.Logger
	Source   ResultsSource
	Store    Store
	Pub      Publisher
	Cache    Invalidator
	Interval time.Duration

	OnCycle     func()            // métricas
	OnSettled   func(status string) // métricas por resultado
	OnItemError func()            // métricas: falha isolada de evento/aposta
	OnError     func()            // métricas: provider indisponível

	force chan struct{}
}

func NewEngine(log *zap.Logger, src ResultsSource, store Store, pub Publisher, cache Invalidator, interval time.Duration) *Engine {
	return &Engine{
		Log:      log,
		Source:   src,
		Store:    store,
		Pub:      pub,
		Cache:    cache,
		Interval: interval,
		force:    make(chan struct{}, 1),
	}
}

// Force agenda um ciclo imediato (operação ForceSettlement do admin)
func (e *Engine) Force() {
	select {
	case e.force <- struct{}{}:
	default:
	}
}

// Run roda o loop de liquidação até o contexto ser cancelado
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunOnce(ctx)
		case <-e.force:
			e.RunOnce(ctx)
		}
	}
}

// RunOnce executa um ciclo completo de liquidação.
// Falha por evento não aborta o restante do lote; indisponibilidade do
// provider pula o ciclo inteiro e espera o próximo intervalo.
func (e *Engine) RunOnce(ctx context.Context) {
	if e.OnCycle != nil {
		e.OnCycle()
	}

	results, err := e.Source.Results(ctx)
	if err != nil {
		e.Log.Warn("provider results unavailable, skipping cycle", zap.Error(err))
		if e.OnError != nil {
			e.OnError()
		}
		return
	}

	deactivated := 0
	for _, r := range results {
		if r.Status != provider.StatusFinished {
			continue
		}

		st, err := e.Store.SettleEvent(ctx, r.ExternalID, r.HomeScore, r.AwayScore)
		if err != nil {
			e.Log.Error("settle event failed", zap.String("external_id", r.ExternalID), zap.Error(err))
			if e.OnItemError != nil {
				e.OnItemError()
			}
			continue
		}
		if st.AlreadySettled {
			continue
		}
		deactivated++

		e.Log.Info("event settled",
			zap.String("event_id", st.EventID),
			zap.String("winner", st.Winner),
			zap.Int("bets", len(st.Bets)),
		)

		for _, b := range st.Bets {
			e.publish(ctx, ev.BetSettled{
				BetID:       b.BetID,
				UserID:      b.UserID,
				Status:      b.Status,
				PayoutCents: b.PayoutCents,
				EventID:     st.EventID,
				Ts:          time.Now().UTC(),
			})
			if e.OnSettled != nil {
				e.OnSettled(b.Status)
			}
		}
	}

	e.resolveCombos(ctx)

	if deactivated > 0 && e.Cache != nil {
		if err := e.Cache.Invalidate(ctx); err != nil {
			e.Log.Warn("events cache invalidate", zap.Error(err))
		}
	}
}

// resolveCombos é a extensão de liquidação de combinadas, separada da
// varredura por evento: decide cada combinada pendente contra os
// vencedores já gravados nos eventos das pernas. Perna perdida resolve a
// aposta como LOST na hora; WON exige todas as pernas encerradas.
func (e *Engine) resolveCombos(ctx context.Context) {
	combos, err := e.Store.PendingCombos(ctx)
	if err != nil {
		e.Log.Error("load pending combos", zap.Error(err))
		if e.OnItemError != nil {
			e.OnItemError()
		}
		return
	}
	if len(combos) == 0 {
		return
	}

	seen := map[string]bool{}
	var eventIDs []string
	for _, c := range combos {
		for _, l := range c.Legs {
			if !seen[l.EventID] {
				seen[l.EventID] = true
				eventIDs = append(eventIDs, l.EventID)
			}
		}
	}

	states, err := e.Store.LegStates(ctx, eventIDs)
	if err != nil {
		e.Log.Error("load leg states", zap.Error(err))
		if e.OnItemError != nil {
			e.OnItemError()
		}
		return
	}

	for _, c := range combos {
		decided, won := DecideCombo(c.Legs, states)
		if !decided {
			continue
		}

		resolved, err := e.Store.ResolveCombo(ctx, c.BetID, won, c.PotentialWinCents)
		if err != nil {
			e.Log.Error("resolve combo failed", zap.String("betId", c.BetID), zap.Error(err))
			if e.OnItemError != nil {
				e.OnItemError()
			}
			continue
		}
		if !resolved {
			continue
		}

		status := bets.StatusLost
		var payout int64
		if won {
			status = bets.StatusWon
			payout = c.PotentialWinCents
		}
		e.publish(ctx, ev.BetSettled{
			BetID:       c.BetID,
			UserID:      c.UserID,
			Status:      status,
			PayoutCents: payout,
			Ts:          time.Now().UTC(),
		})
		if e.OnSettled != nil {
			e.OnSettled(status)
		}
	}
}

// DecideCombo avalia as pernas contra o estado dos eventos:
// qualquer perna com vencedor diferente da seleção perde a aposta;
// vencer exige todas as pernas com vencedor igual à seleção.
func DecideCombo(legs []bets.Leg, states map[string]LegState) (decided, won bool) {
	allSettled := true
	for _, l := range legs {
		st, ok := states[l.EventID]
		if !ok || st.Active || st.Winner == "" {
			allSettled = false
			continue
		}
		if st.Winner != l.Selection {
			return true, false
		}
	}
	if allSettled {
		return true, true
	}
	return false, false
}

func (e *Engine) publish(ctx context.Context, msg ev.BetSettled) {
	if e.Pub == nil {
		return
	}
	if err := e.Pub.PublishBetSettled(ctx, msg); err != nil {
		e.Log.Warn("publish bet_settled", zap.String("betId", msg.BetID), zap.Error(err))
	}
}
