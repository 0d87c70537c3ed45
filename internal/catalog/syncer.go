package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betting-house-core/internal/provider"
)

// FixtureSource abstrai o provider para o worker de sincronização
type FixtureSource interface {
	Fixtures(ctx context.Context) ([]provider.Fixture, error)
}

// EventInserter é a operação de escrita usada pelo sync
type EventInserter interface {
	InsertFromProvider(ctx context.Context, externalID, name string, oddsHome, oddsDraw, oddsAway float64, startsAt time.Time) (bool, error)
}

// Invalidator derruba caches derivados do catálogo após inserções
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Syncer ingere fixtures do provider em intervalo fixo.
// Indisponibilidade do provider é transiente: loga e espera o próximo tick.
type Syncer struct {
	Log      *zap.Logger
	Source   FixtureSource
	Repo     EventInserter
	Cache    Invalidator
	Interval time.Duration

	OnSynced func(inserted, skipped int) // métricas
	OnError  func()                      // métricas

	force chan struct{}
}

func NewSyncer(log *zap.Logger, src FixtureSource, repo EventInserter, cache Invalidator, interval time.Duration) *Syncer {
	return &Syncer{
		Log:      log,
		Source:   src,
		Repo:     repo,
		Cache:    cache,
		Interval: interval,
		force:    make(chan struct{}, 1),
	}
}

// Force agenda uma sincronização imediata (operação ForceSync do admin)
// Não bloqueia: se já existe uma pendente, o pedido é coalescido
func (s *Syncer) Force() {
	select {
	case s.force <- struct{}{}:
	default:
	}
}

// Run roda o loop de sincronização até o contexto ser cancelado
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// primeira carga logo na subida
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.force:
			s.runOnce(ctx)
		}
	}
}

func (s *Syncer) runOnce(ctx context.Context) {
	fixtures, err := s.Source.Fixtures(ctx)
	if err != nil {
		s.Log.Warn("provider fixtures unavailable, skipping cycle", zap.Error(err))
		if s.OnError != nil {
			s.OnError()
		}
		return
	}

	inserted, skipped := s.Sync(ctx, fixtures)
	if inserted > 0 && s.Cache != nil {
		if err := s.Cache.Invalidate(ctx); err != nil {
			s.Log.Warn("events cache invalidate", zap.Error(err))
		}
	}
	if s.OnSynced != nil {
		s.OnSynced(inserted, skipped)
	}
	if inserted > 0 {
		s.Log.Info("catalog synced", zap.Int("inserted", inserted), zap.Int("skipped", skipped))
	}
}

// Sync ingere a lista de fixtures: external_id já conhecido é pulado,
// fixture sem mercado h2h é pulada, o resto vira evento ativo novo.
func (s *Syncer) Sync(ctx context.Context, fixtures []provider.Fixture) (inserted, skipped int) {
	for _, f := range fixtures {
		home, draw, away, ok := ExtractH2H(f)
		if !ok {
			skipped++
			continue
		}
		name := f.HomeTeam + " vs " + f.AwayTeam
		ins, err := s.Repo.InsertFromProvider(ctx, f.ExternalID, name, home, draw, away, f.StartTime)
		if err != nil {
			// falha pontual não derruba o restante do lote
			s.Log.Warn("fixture insert failed", zap.String("external_id", f.ExternalID), zap.Error(err))
			skipped++
			continue
		}
		if ins {
			inserted++
		} else {
			skipped++
		}
	}
	return inserted, skipped
}
