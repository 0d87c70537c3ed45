package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/radieske/betting-house-core/internal/catalog"
	"github.com/radieske/betting-house-core/internal/testdb"
)

func TestInsertFromProviderIdempotent(t *testing.T) {
	db := testdb.Connect(t)
	repo := catalog.NewPostgres(db)
	ctx := context.Background()
	starts := time.Now().Add(time.Hour).UTC()

	inserted, err := repo.InsertFromProvider(ctx, "M1", "Flamengo x Palmeiras", 1.8, 3.2, 4.1, starts)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert reported as duplicate")
	}

	// resync com odds diferentes: nada muda, valem as da primeira ingestão
	inserted, err = repo.InsertFromProvider(ctx, "M1", "Flamengo x Palmeiras", 2.5, 3.0, 3.5, starts)
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate external_id inserted twice")
	}

	ev, err := repo.GetByExternalID(ctx, "M1")
	if err != nil {
		t.Fatal(err)
	}
	if ev.OddsHome != 1.8 {
		t.Fatalf("odds_home = %v, want 1.8 (primeira ingestão prevalece)", ev.OddsHome)
	}
	if !ev.IsActive {
		t.Fatal("evento ingerido deveria nascer ativo")
	}
}

func TestCreateOperatorEvent(t *testing.T) {
	db := testdb.Connect(t)
	repo := catalog.NewPostgres(db)
	ctx := context.Background()

	ev, err := repo.Create(ctx, "Final da Copa", 1.9, 3.1, 4.0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ExternalID != "" {
		t.Fatalf("operator event carries external_id %q", got.ExternalID)
	}
	if !got.IsActive || got.OddsDraw != 3.1 {
		t.Fatalf("unexpected event %+v", got)
	}

	if _, err := repo.Create(ctx, "x", 0, 3.0, 4.0); !errors.Is(err, catalog.ErrInvalidOdds) {
		t.Fatalf("err = %v, want ErrInvalidOdds", err)
	}
}

func TestListActiveExcludesSettled(t *testing.T) {
	db := testdb.Connect(t)
	repo := catalog.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedEvent(t, db, "ev-1", "M1", "A x B", 2.0, 3.0, 4.0)
	testdb.SeedEvent(t, db, "ev-2", "M2", "C x D", 1.5, 3.2, 2.0)

	if err := repo.Deactivate(ctx, "ev-2"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	list, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "ev-1" {
		t.Fatalf("active events = %+v, want only ev-1", list)
	}

	// desativar de novo é no-op; id inexistente é erro
	if err := repo.Deactivate(ctx, "ev-2"); err != nil {
		t.Fatalf("re-deactivate: %v", err)
	}
	if err := repo.Deactivate(ctx, "ghost"); !errors.Is(err, catalog.ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}
}

func TestUpdateOdds(t *testing.T) {
	db := testdb.Connect(t)
	repo := catalog.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedEvent(t, db, "ev-1", "M1", "A x B", 2.0, 3.0, 4.0)

	if err := repo.UpdateOdds(ctx, "ev-1", 2.2, 3.1, 3.8); err != nil {
		t.Fatalf("update odds: %v", err)
	}
	ev, err := repo.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatal(err)
	}
	if ev.OddsHome != 2.2 || ev.OddsAway != 3.8 {
		t.Fatalf("odds = %v/%v, want 2.2/3.8", ev.OddsHome, ev.OddsAway)
	}

	if err := repo.UpdateOdds(ctx, "ev-1", -1, 3.0, 4.0); !errors.Is(err, catalog.ErrInvalidOdds) {
		t.Fatalf("err = %v, want ErrInvalidOdds", err)
	}
	if err := repo.UpdateOdds(ctx, "ghost", 2.0, 3.0, 4.0); !errors.Is(err, catalog.ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}
}
