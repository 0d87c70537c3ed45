package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betting-house-core/internal/bets"
	"github.com/radieske/betting-house-core/internal/provider"
	ev "github.com/radieske/betting-house-core/pkg/contracts/events"
)

type fakeResults struct {
	results []provider.Result
	err     error
}

func (f *fakeResults) Results(context.Context) ([]provider.Result, error) {
	return f.results, f.err
}

type fakeStore struct {
	settlements map[string]EventSettlement
	settleErrOn string
	settled     []string

	combos    []PendingCombo
	legStates map[string]LegState
	resolved  map[string]bool // betID -> won
}

func (f *fakeStore) SettleEvent(_ context.Context, externalID string, _, _ int) (EventSettlement, error) {
	if externalID == f.settleErrOn {
		return EventSettlement{}, errors.New("deadlock")
	}
	f.settled = append(f.settled, externalID)
	st, ok := f.settlements[externalID]
	if !ok {
		return EventSettlement{AlreadySettled: true}, nil
	}
	return st, nil
}

func (f *fakeStore) PendingCombos(context.Context) ([]PendingCombo, error) {
	return f.combos, nil
}

func (f *fakeStore) LegStates(_ context.Context, _ []string) (map[string]LegState, error) {
	return f.legStates, nil
}

func (f *fakeStore) ResolveCombo(_ context.Context, betID string, won bool, _ int64) (bool, error) {
	if f.resolved == nil {
		f.resolved = map[string]bool{}
	}
	if _, done := f.resolved[betID]; done {
		return false, nil
	}
	f.resolved[betID] = won
	return true, nil
}

type fakePublisher struct {
	published []ev.BetSettled
	err       error
}

func (f *fakePublisher) PublishBetSettled(_ context.Context, e ev.BetSettled) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, e)
	return nil
}

type fakeCache struct{ invalidated int }

func (f *fakeCache) Invalidate(context.Context) error {
	f.invalidated++
	return nil
}

func newTestEngine(src ResultsSource, store Store, pub Publisher, cache Invalidator) *Engine {
	return NewEngine(zap.NewNop(), src, store, pub, cache, time.Minute)
}

func TestRunOnceSettlesFinishedEvents(t *testing.T) {
	src := &fakeResults{results: []provider.Result{
		{ExternalID: "M1", Status: provider.StatusFinished, HomeScore: 2, AwayScore: 1},
		{ExternalID: "M2", Status: "in_play"},
	}}
	store := &fakeStore{settlements: map[string]EventSettlement{
		"M1": {EventID: "ev-1", Winner: "local", Bets: []SettledBet{
			{BetID: "b1", UserID: "u1", Status: bets.StatusWon, PayoutCents: 7500},
			{BetID: "b2", UserID: "u2", Status: bets.StatusLost},
		}},
	}}
	pub := &fakePublisher{}
	cache := &fakeCache{}

	e := newTestEngine(src, store, pub, cache)
	won, lost := 0, 0
	e.OnSettled = func(status string) {
		if status == bets.StatusWon {
			won++
		} else {
			lost++
		}
	}
	e.RunOnce(context.Background())

	if len(store.settled) != 1 || store.settled[0] != "M1" {
		t.Fatalf("settled %v, want only M1 (evento em andamento fica de fora)", store.settled)
	}
	if won != 1 || lost != 1 {
		t.Fatalf("settled counters won=%d lost=%d, want 1/1", won, lost)
	}
	if len(pub.published) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.published))
	}
	if pub.published[0].EventID != "ev-1" || pub.published[0].PayoutCents != 7500 {
		t.Fatalf("unexpected first published event: %+v", pub.published[0])
	}
	if cache.invalidated != 1 {
		t.Fatalf("cache invalidated %d times, want 1", cache.invalidated)
	}
}

func TestRunOnceAlreadySettledIsNoop(t *testing.T) {
	src := &fakeResults{results: []provider.Result{
		{ExternalID: "M1", Status: provider.StatusFinished, HomeScore: 1, AwayScore: 0},
	}}
	store := &fakeStore{} // sem settlements: tudo volta AlreadySettled
	pub := &fakePublisher{}
	cache := &fakeCache{}

	e := newTestEngine(src, store, pub, cache)
	e.RunOnce(context.Background())
	e.RunOnce(context.Background())

	if len(pub.published) != 0 {
		t.Fatalf("published %d events, want 0", len(pub.published))
	}
	if cache.invalidated != 0 {
		t.Fatalf("cache invalidated %d times, want 0 (nenhum evento encerrou agora)", cache.invalidated)
	}
}

func TestRunOnceIsolatesEventFailure(t *testing.T) {
	src := &fakeResults{results: []provider.Result{
		{ExternalID: "M1", Status: provider.StatusFinished},
		{ExternalID: "M2", Status: provider.StatusFinished},
	}}
	store := &fakeStore{
		settleErrOn: "M1",
		settlements: map[string]EventSettlement{
			"M2": {EventID: "ev-2", Winner: "draw"},
		},
	}

	e := newTestEngine(src, store, nil, nil)
	itemErrs := 0
	e.OnItemError = func() { itemErrs++ }
	e.RunOnce(context.Background())

	if itemErrs != 1 {
		t.Fatalf("OnItemError calls = %d, want 1", itemErrs)
	}
	if len(store.settled) != 1 || store.settled[0] != "M2" {
		t.Fatalf("settled %v, want M2 apesar da falha em M1", store.settled)
	}
}

func TestRunOnceProviderDownSkipsCycle(t *testing.T) {
	src := &fakeResults{err: errors.New("connection refused")}
	store := &fakeStore{}

	e := newTestEngine(src, store, nil, nil)
	errs := 0
	e.OnError = func() { errs++ }
	e.RunOnce(context.Background())

	if errs != 1 {
		t.Fatalf("OnError calls = %d, want 1", errs)
	}
	if len(store.settled) != 0 {
		t.Fatalf("settled %v, want none", store.settled)
	}
}

func TestRunOnceResolvesCombos(t *testing.T) {
	src := &fakeResults{}
	store := &fakeStore{
		combos: []PendingCombo{
			{BetID: "c1", UserID: "u1", PotentialWinCents: 3600, Legs: []bets.Leg{
				{EventID: "ev-1", Selection: "local"},
				{EventID: "ev-2", Selection: "away"},
			}},
			{BetID: "c2", UserID: "u2", PotentialWinCents: 9000, Legs: []bets.Leg{
				{EventID: "ev-1", Selection: "draw"},
			}},
			{BetID: "c3", UserID: "u3", PotentialWinCents: 5000, Legs: []bets.Leg{
				{EventID: "ev-1", Selection: "local"},
				{EventID: "ev-3", Selection: "local"},
			}},
		},
		legStates: map[string]LegState{
			"ev-1": {Winner: "local"},
			"ev-2": {Winner: "away"},
			"ev-3": {Active: true}, // ainda em aberto
		},
	}
	pub := &fakePublisher{}

	e := newTestEngine(src, store, pub, nil)
	e.RunOnce(context.Background())

	if won, ok := store.resolved["c1"]; !ok || !won {
		t.Fatalf("c1 resolved=%v won=%v, want resolved winner", ok, won)
	}
	if won, ok := store.resolved["c2"]; !ok || won {
		t.Fatalf("c2 resolved=%v won=%v, want resolved loser (perna já perdida)", ok, won)
	}
	if _, ok := store.resolved["c3"]; ok {
		t.Fatalf("c3 resolved early; perna ev-3 ainda ativa")
	}
	if len(pub.published) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.published))
	}
	for _, p := range pub.published {
		if p.BetID == "c1" && p.PayoutCents != 3600 {
			t.Fatalf("c1 payout = %d, want 3600", p.PayoutCents)
		}
		if p.BetID == "c2" && p.PayoutCents != 0 {
			t.Fatalf("c2 payout = %d, want 0", p.PayoutCents)
		}
		if p.EventID != "" {
			t.Fatalf("combo bet_settled carries eventId %q, want empty", p.EventID)
		}
	}
}

func TestDecideCombo(t *testing.T) {
	legs := []bets.Leg{
		{EventID: "ev-1", Selection: "local"},
		{EventID: "ev-2", Selection: "draw"},
	}
	tests := []struct {
		name    string
		states  map[string]LegState
		decided bool
		won     bool
	}{
		{
			"all legs match",
			map[string]LegState{"ev-1": {Winner: "local"}, "ev-2": {Winner: "draw"}},
			true, true,
		},
		{
			"one leg lost decides immediately",
			map[string]LegState{"ev-1": {Winner: "away"}, "ev-2": {Active: true}},
			true, false,
		},
		{
			"pending leg keeps bet open",
			map[string]LegState{"ev-1": {Winner: "local"}, "ev-2": {Active: true}},
			false, false,
		},
		{
			"unknown event keeps bet open",
			map[string]LegState{"ev-1": {Winner: "local"}},
			false, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decided, won := DecideCombo(legs, tt.states)
			if decided != tt.decided || won != tt.won {
				t.Fatalf("DecideCombo = (%v, %v), want (%v, %v)", decided, won, tt.decided, tt.won)
			}
		})
	}
}
