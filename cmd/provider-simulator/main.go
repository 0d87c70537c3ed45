package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betting-house-core/internal/provider"
	"github.com/radieske/betting-house-core/internal/shared/config"
	"github.com/radieske/betting-house-core/internal/shared/logger"
	"github.com/radieske/betting-house-core/internal/shared/metrics"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Métricas Prometheus do simulador
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "provider_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	wsMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "provider_ws_messages_sent_total",
		Help: "Total de mensagens WS enviadas",
	})
	matchesFinished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "provider_matches_finished_total",
		Help: "Partidas simuladas encerradas",
	})
)

// simMatch é uma partida simulada: odds sorteadas na subida do processo,
// placar sorteado quando a partida encerra.
type simMatch struct {
	ExternalID string
	HomeTeam   string
	AwayTeam   string
	StartsAt   time.Time
	OddsHome   float64
	OddsDraw   float64
	OddsAway   float64

	Finished  bool
	HomeScore int
	AwayScore int
}

// world guarda o estado simulado sob mutex
type world struct {
	mu      sync.RWMutex
	matches []*simMatch
}

// newWorld monta o catálogo fixo de partidas, escalonadas no tempo
func newWorld(now time.Time) *world {
	teams := [][2]string{
		{"Flamengo", "Palmeiras"},
		{"Grêmio", "Internacional"},
		{"Corinthians", "Santos"},
		{"São Paulo", "Vasco"},
	}
	w := &world{}
	for i, t := range teams {
		w.matches = append(w.matches, &simMatch{
			ExternalID: fmt.Sprintf("MATCH_%03d", i+1),
			HomeTeam:   t[0],
			AwayTeam:   t[1],
			StartsAt:   now.Add(time.Duration(i+1) * 90 * time.Second),
			OddsHome:   rnd(1.40, 3.50),
			OddsDraw:   rnd(2.50, 4.50),
			OddsAway:   rnd(2.00, 5.00),
		})
	}
	return w
}

// tick encerra partidas cujo horário já passou, com placar aleatório
func (w *world) tick(now time.Time) (finished []*simMatch) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range w.matches {
		if m.Finished || now.Before(m.StartsAt.Add(60*time.Second)) {
			continue
		}
		m.Finished = true
		m.HomeScore = rand.Intn(4)
		m.AwayScore = rand.Intn(4)
		matchesFinished.Inc()
		finished = append(finished, m)
	}
	return finished
}

func (w *world) fixtures() []provider.Fixture {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]provider.Fixture, 0, len(w.matches))
	for _, m := range w.matches {
		out = append(out, provider.Fixture{
			ExternalID: m.ExternalID,
			HomeTeam:   m.HomeTeam,
			AwayTeam:   m.AwayTeam,
			StartTime:  m.StartsAt,
			Bookmakers: []provider.Bookmaker{{
				Key: "simulator",
				Markets: []provider.Market{{
					Key: "h2h",
					Outcomes: []provider.Outcome{
						{Name: m.HomeTeam, Price: m.OddsHome},
						{Name: "Draw", Price: m.OddsDraw},
						{Name: m.AwayTeam, Price: m.OddsAway},
					},
				}},
			}},
		})
	}
	return out
}

func (w *world) results() []provider.Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]provider.Result, 0, len(w.matches))
	for _, m := range w.matches {
		r := provider.Result{ExternalID: m.ExternalID, Status: "scheduled"}
		if m.Finished {
			r.Status = provider.StatusFinished
			r.HomeScore = m.HomeScore
			r.AwayScore = m.AwayScore
		}
		out = append(out, r)
	}
	return out
}

// clientConn é uma conexão de cliente WebSocket
type clientConn struct {
	id   string
	conn *websocket.Conn
}

// hub gerencia os clientes conectados e faz broadcast pra todos
type hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{clients: make(map[string]*clientConn), log: log}
}

func (h *hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

func (h *hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, _ := json.Marshal(v)
	for id, c := range h.clients {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
		} else {
			wsMessagesSent.Inc()
		}
	}
}

// rnd gera número aleatório entre min e max
func rnd(min, max float64) float64 {
	return (rand.Float64() * (max - min)) + min
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(wsConnections, wsMessagesSent, matchesFinished)

	w := newWorld(time.Now())
	h := newHub(log)

	// Encerra partidas vencidas e avisa os clientes WS
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			for _, m := range w.tick(time.Now()) {
				log.Info("match finished",
					zap.String("external_id", m.ExternalID),
					zap.Int("home", m.HomeScore),
					zap.Int("away", m.AwayScore),
				)
				h.broadcast(provider.Result{
					ExternalID: m.ExternalID,
					Status:     provider.StatusFinished,
					HomeScore:  m.HomeScore,
					AwayScore:  m.AwayScore,
				})
			}
		}
	}()

	r := chi.NewRouter()
	r.Get("/fixtures", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, w.fixtures())
	})
	r.Get("/results", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, w.results())
	})
	r.Get("/ws", func(rw http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(rw, req, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		id := fmt.Sprintf("%d", time.Now().UnixNano())
		c := &clientConn{id: id, conn: conn}
		h.add(c)

		go func() {
			defer func() {
				h.remove(id)
				_ = conn.Close()
			}()
			for {
				// lê e descarta mensagens do cliente para manter o socket limpo
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	metrics.StartMetricsServer(cfg.MetricsPort, nil)

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("provider simulator running",
		zap.String("addr", addr),
		zap.String("paths", "/fixtures,/results,/ws"),
	)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
