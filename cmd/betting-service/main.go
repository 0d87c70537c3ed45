package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betting-house-core/internal/api"
	"github.com/radieske/betting-house-core/internal/bets"
	"github.com/radieske/betting-house-core/internal/catalog"
	"github.com/radieske/betting-house-core/internal/ledger"
	"github.com/radieske/betting-house-core/internal/provider"
	"github.com/radieske/betting-house-core/internal/publisher"
	"github.com/radieske/betting-house-core/internal/settlement"
	"github.com/radieske/betting-house-core/internal/shared/cache"
	"github.com/radieske/betting-house-core/internal/shared/config"
	"github.com/radieske/betting-house-core/internal/shared/db"
	"github.com/radieske/betting-house-core/internal/shared/kafka"
	"github.com/radieske/betting-house-core/internal/shared/logger"
	"github.com/radieske/betting-house-core/internal/shared/metrics"
	"github.com/radieske/betting-house-core/internal/transactions"
)

// Métricas de domínio do núcleo
var (
	betsPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betting_bets_placed_total",
		Help: "Apostas aceitas (débito efetivado)",
	})
	betsSettled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betting_bets_settled_total",
		Help: "Apostas liquidadas por resultado",
	}, []string{"status"})
	settlementCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betting_settlement_cycles_total",
		Help: "Ciclos de liquidação executados",
	})
	settlementItemErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betting_settlement_item_errors_total",
		Help: "Falhas isoladas de evento/aposta durante a liquidação",
	})
	syncInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betting_sync_events_inserted_total",
		Help: "Eventos novos ingeridos do provider",
	})
	syncSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betting_sync_fixtures_skipped_total",
		Help: "Fixtures puladas (duplicadas ou sem mercado h2h)",
	})
	providerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betting_provider_errors_total",
		Help: "Ciclos pulados por indisponibilidade do provider",
	})
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(betsPlaced, betsSettled, settlementCycles,
		settlementItemErrors, syncInserted, syncSkipped, providerErrors)

	// Postgres: store autoritativo de usuários, transações, eventos e apostas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache de leitura da lista de eventos ativos
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka: eventos de domínio, fire-and-forget
	pub := &publisher.Kafka{
		BetPlaced:  kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced),
		BetSettled: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled),
		TxApproved: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTxApproved),
	}
	defer pub.Close()

	// deps
	ledgerRepo := ledger.NewPostgres(pg)
	catalogRepo := catalog.NewPostgres(pg)
	txRepo := transactions.NewPostgres(pg)
	betsRepo := bets.NewPostgres(pg)
	settleRepo := settlement.NewPostgres(pg)
	eventsCache := catalog.NewCache(rdb, cfg.EventsCacheTTL)
	prov := provider.New(cfg.ProviderBaseURL, cfg.ProviderTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// worker de sincronização do catálogo
	syncer := catalog.NewSyncer(log, prov, catalogRepo, eventsCache, cfg.SyncInterval)
	syncer.OnSynced = func(inserted, skipped int) {
		syncInserted.Add(float64(inserted))
		syncSkipped.Add(float64(skipped))
	}
	syncer.OnError = providerErrors.Inc
	go syncer.Run(ctx)

	// worker de liquidação
	engine := settlement.NewEngine(log, prov, settleRepo, pub, eventsCache, cfg.SettleInterval)
	engine.OnCycle = settlementCycles.Inc
	engine.OnSettled = func(status string) { betsSettled.WithLabelValues(status).Inc() }
	engine.OnItemError = settlementItemErrors.Inc
	engine.OnError = providerErrors.Inc
	go engine.Run(ctx)

	// HTTP público + admin
	betEngine := countingBets{betsRepo}
	apiSrv := api.NewServer(log, ledgerRepo, betEngine, txRepo, catalogRepo, eventsCache, pub, syncer, engine, cfg.AdminToken)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: apiSrv.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("betting-service listening",
		zap.String("addr", srv.Addr),
		zap.Duration("sync_interval", cfg.SyncInterval),
		zap.Duration("settle_interval", cfg.SettleInterval),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

// countingBets decora o repositório de apostas com a métrica de colocação
type countingBets struct{ *bets.Postgres }

func (c countingBets) PlaceSingle(ctx context.Context, userID, eventID, selection string, stakeCents int64) (bets.Bet, int64, error) {
	b, bal, err := c.Postgres.PlaceSingle(ctx, userID, eventID, selection, stakeCents)
	if err == nil {
		betsPlaced.Inc()
	}
	return b, bal, err
}

func (c countingBets) PlaceCombo(ctx context.Context, userID string, legs []bets.Leg, stakeCents int64) (bets.Bet, int64, error) {
	b, bal, err := c.Postgres.PlaceCombo(ctx, userID, legs, stakeCents)
	if err == nil {
		betsPlaced.Inc()
	}
	return b, bal, err
}
