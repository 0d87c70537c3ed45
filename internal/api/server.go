package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/betting-house-core/internal/api/dto"
	"github.com/radieske/betting-house-core/internal/bets"
	"github.com/radieske/betting-house-core/internal/catalog"
	"github.com/radieske/betting-house-core/internal/ledger"
	"github.com/radieske/betting-house-core/internal/transactions"
	ev "github.com/radieske/betting-house-core/pkg/contracts/events"
)

// Ledger define as operações de usuário/saldo usadas pela API
type Ledger interface {
	Register(ctx context.Context, userID, username, firstName string) error
	GetBalance(ctx context.Context, userID string) (int64, error)
}

// BetEngine define a colocação e listagem de apostas
type BetEngine interface {
	PlaceSingle(ctx context.Context, userID, eventID, selection string, stakeCents int64) (bets.Bet, int64, error)
	PlaceCombo(ctx context.Context, userID string, legs []bets.Leg, stakeCents int64) (bets.Bet, int64, error)
	ListForUser(ctx context.Context, userID string) ([]bets.Bet, error)
}

// TxManager define o ciclo de depósito/retirada
type TxManager interface {
	RequestDeposit(ctx context.Context, userID, accountInfo string) (transactions.Transaction, error)
	RequestWithdraw(ctx context.Context, userID string, amountCents int64) (transactions.Transaction, int64, error)
	ApproveDeposit(ctx context.Context, transactionID string, amountCents int64) (transactions.Transaction, error)
	ApproveWithdraw(ctx context.Context, transactionID string) (transactions.Transaction, error)
	ListForUser(ctx context.Context, userID string) ([]transactions.Transaction, error)
}

// Catalog define as operações de catálogo expostas na API
type Catalog interface {
	ListActive(ctx context.Context) ([]catalog.Event, error)
	Create(ctx context.Context, name string, oddsHome, oddsDraw, oddsAway float64) (catalog.Event, error)
	UpdateOdds(ctx context.Context, id string, oddsHome, oddsDraw, oddsAway float64) error
}

// EventsCache é o cache de leitura da lista de eventos ativos
type EventsCache interface {
	GetActive(ctx context.Context) ([]catalog.Event, bool)
	SetActive(ctx context.Context, events []catalog.Event) error
	Invalidate(ctx context.Context) error
}

// Publisher emite eventos de domínio; erro só gera log
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e ev.BetPlaced) error
	PublishTransactionApproved(ctx context.Context, e ev.TransactionApproved) error
}

// Forcer dispara um ciclo imediato de um worker em background
type Forcer interface{ Force() }

// Server expõe a API pública do núcleo e a superfície do operador
type Server struct {
	log *zap.Logger

	ledger Ledger
	bets   BetEngine
	txs    TxManager
	cat    Catalog
	cache  EventsCache
	publ   Publisher

	syncer  Forcer
	settler Forcer

	adminToken string
}

func NewServer(log *zap.Logger, l Ledger, b BetEngine, t TxManager, c Catalog, cache EventsCache, p Publisher, syncer, settler Forcer, adminToken string) *Server {
	return &Server{
		log:        log,
		ledger:     l,
		bets:       b,
		txs:        t,
		cat:        c,
		cache:      cache,
		publ:       p,
		syncer:     syncer,
		settler:    settler,
		adminToken: adminToken,
	}
}

// Router monta as rotas públicas e as de admin (protegidas por token)
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/users/register", s.register)
	r.Get("/balance", s.getBalance)
	r.Get("/events", s.listEvents)
	r.Get("/bets", s.listBets)
	r.Post("/bets/single", s.placeSingle)
	r.Post("/bets/combo", s.placeCombo)
	r.Get("/transactions", s.listTransactions)
	r.Post("/transactions/deposit", s.requestDeposit)
	r.Post("/transactions/withdraw", s.requestWithdraw)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminOnly)
		r.Post("/transactions/{id}/approve-deposit", s.approveDeposit)
		r.Post("/transactions/{id}/approve-withdraw", s.approveWithdraw)
		r.Post("/events", s.createEvent)
		r.Put("/events/{id}/odds", s.updateOdds)
		r.Post("/sync", s.forceSync)
		r.Post("/settle", s.forceSettlement)
	})

	return r
}

// adminOnly valida o token do operador no header X-Admin-Token
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Token") != s.adminToken {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// register cria (ou atualiza) o usuário na primeira interação
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	if err := s.ledger.Register(r.Context(), req.UserID, req.Username, req.FirstName); err != nil {
		s.writeErr(w, err)
		return
	}
	bal, err := s.ledger.GetBalance(r.Context(), req.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{UserID: req.UserID, BalanceCents: bal})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	bal, err := s.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{UserID: userID, BalanceCents: bal})
}

// listEvents serve a lista de eventos ativos, preferindo o cache
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if cached, ok := s.cache.GetActive(r.Context()); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}
	evs, err := s.cat.ListActive(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if s.cache != nil {
		if err := s.cache.SetActive(r.Context(), evs); err != nil {
			s.log.Warn("events cache set", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	list, err := s.bets.ListForUser(r.Context(), userID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) placeSingle(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceSingleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.EventID == "" || req.Selection == "" || req.StakeCents <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	bet, newBalance, err := s.bets.PlaceSingle(r.Context(), req.UserID, req.EventID, req.Selection, req.StakeCents)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	s.publishBetPlaced(r.Context(), bet)
	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{Bet: bet, NewBalanceCents: newBalance})
}

func (s *Server) placeCombo(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceComboRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || len(req.Legs) == 0 || req.StakeCents <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	legs := make([]bets.Leg, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = bets.Leg{EventID: l.EventID, Selection: l.Selection, Odds: l.Odds}
	}

	bet, newBalance, err := s.bets.PlaceCombo(r.Context(), req.UserID, legs, req.StakeCents)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	s.publishBetPlaced(r.Context(), bet)
	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{Bet: bet, NewBalanceCents: newBalance})
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	list, err := s.txs.ListForUser(r.Context(), userID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) requestDeposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	t, err := s.txs.RequestDeposit(r.Context(), req.UserID, req.AccountInfo)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TransactionResponse{Transaction: t})
}

func (s *Server) requestWithdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	t, newBalance, err := s.txs.RequestWithdraw(r.Context(), req.UserID, req.AmountCents)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TransactionResponse{Transaction: t, NewBalanceCents: &newBalance})
}

func (s *Server) approveDeposit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ApproveDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.AmountCents <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid amount"})
		return
	}
	t, err := s.txs.ApproveDeposit(r.Context(), id, req.AmountCents)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.publishTxApproved(r.Context(), t)
	writeJSON(w, http.StatusOK, dto.TransactionResponse{Transaction: t})
}

func (s *Server) approveWithdraw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.txs.ApproveWithdraw(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.publishTxApproved(r.Context(), t)
	writeJSON(w, http.StatusOK, dto.TransactionResponse{Transaction: t})
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "name required"})
		return
	}
	evt, err := s.cat.Create(r.Context(), req.Name, req.OddsHome, req.OddsDraw, req.OddsAway)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.invalidateEvents(r.Context())
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) updateOdds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.UpdateOddsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if err := s.cat.UpdateOdds(r.Context(), id, req.OddsHome, req.OddsDraw, req.OddsAway); err != nil {
		s.writeErr(w, err)
		return
	}
	s.invalidateEvents(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// forceSync agenda uma sincronização imediata do catálogo
func (s *Server) forceSync(w http.ResponseWriter, r *http.Request) {
	s.syncer.Force()
	w.WriteHeader(http.StatusAccepted)
}

// forceSettlement agenda um ciclo imediato de liquidação
func (s *Server) forceSettlement(w http.ResponseWriter, r *http.Request) {
	s.settler.Force()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) publishBetPlaced(ctx context.Context, bet bets.Bet) {
	if s.publ == nil {
		return
	}
	msg := ev.BetPlaced{
		BetID:             bet.ID,
		UserID:            bet.UserID,
		Kind:              bet.Kind,
		EventID:           bet.EventID,
		Selection:         bet.Selection,
		Legs:              len(bet.Legs),
		StakeCents:        bet.StakeCents,
		OddValue:          bet.OddValue,
		PotentialWinCents: bet.PotentialWinCents,
	}
	if err := s.publ.PublishBetPlaced(ctx, msg); err != nil {
		s.log.Warn("publish bet_placed", zap.String("betId", bet.ID), zap.Error(err))
	}
}

func (s *Server) publishTxApproved(ctx context.Context, t transactions.Transaction) {
	if s.publ == nil {
		return
	}
	msg := ev.TransactionApproved{
		TransactionID: t.ID,
		UserID:        t.UserID,
		Kind:          t.Kind,
		AmountCents:   t.AmountCents,
		Ts:            time.Now().UTC(),
	}
	if err := s.publ.PublishTransactionApproved(ctx, msg); err != nil {
		s.log.Warn("publish transaction_approved", zap.String("transactionId", t.ID), zap.Error(err))
	}
}

func (s *Server) invalidateEvents(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("events cache invalidate", zap.Error(err))
	}
}

// writeErr mapeia os erros de domínio para status HTTP.
// Erros de validação voltam síncronos pro chamador exibir; o resto é 500.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, catalog.ErrEventInactive),
		errors.Is(err, transactions.ErrInvalidState):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, catalog.ErrInvalidOdds),
		errors.Is(err, bets.ErrInvalidSelection),
		errors.Is(err, bets.ErrNoLegs):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, catalog.ErrEventNotFound),
		errors.Is(err, transactions.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	default:
		s.log.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
