package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/radieske/betting-house-core/internal/ledger"
	"github.com/radieske/betting-house-core/internal/testdb"
)

func TestRegisterAndBalance(t *testing.T) {
	db := testdb.Connect(t)
	repo := ledger.NewPostgres(db)
	ctx := context.Background()

	if err := repo.Register(ctx, "u1", "joao", "João"); err != nil {
		t.Fatalf("register: %v", err)
	}
	bal, err := repo.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 0 {
		t.Fatalf("balance = %d, want 0", bal)
	}

	// registrar de novo não zera o saldo
	if _, err := repo.Credit(ctx, "u1", 5000, "deposit:t1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := repo.Register(ctx, "u1", "joao", "João"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	bal, _ = repo.GetBalance(ctx, "u1")
	if bal != 5000 {
		t.Fatalf("balance after re-register = %d, want 5000", bal)
	}
}

func TestGetBalanceUnknownUser(t *testing.T) {
	db := testdb.Connect(t)
	repo := ledger.NewPostgres(db)

	if _, err := repo.GetBalance(context.Background(), "ghost"); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	db := testdb.Connect(t)
	repo := ledger.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 3000)

	if _, err := repo.Debit(ctx, "u1", 5000, "withdraw:t1"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	bal, _ := repo.GetBalance(ctx, "u1")
	if bal != 3000 {
		t.Fatalf("balance = %d, want 3000 (debit falhou, saldo intacto)", bal)
	}
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	db := testdb.Connect(t)
	repo := ledger.NewPostgres(db)
	testdb.SeedUser(t, db, "u1", 3000)

	for _, amount := range []int64{0, -100} {
		if _, err := repo.Debit(context.Background(), "u1", amount, "x"); !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("Debit(%d) err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestCreditDebitWriteEntries(t *testing.T) {
	db := testdb.Connect(t)
	repo := ledger.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 0)

	if _, err := repo.Credit(ctx, "u1", 10000, "deposit:t1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := repo.Debit(ctx, "u1", 4000, "withdraw:t2"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE user_id = 'u1'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("ledger entries = %d, want 2", n)
	}
	bal, _ := repo.GetBalance(ctx, "u1")
	if bal != 6000 {
		t.Fatalf("balance = %d, want 6000", bal)
	}
}

// Dois débitos concorrentes contra o mesmo saldo: o lock de linha garante
// que no máximo um passa quando o saldo só cobre um.
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := testdb.Connect(t)
	repo := ledger.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 5000)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Debit(ctx, "u1", 3000, "bet:concurrent")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ledger.ErrInsufficientFunds):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d debits succeeded, want exactly 1", ok)
	}
	bal, _ := repo.GetBalance(ctx, "u1")
	if bal != 2000 {
		t.Fatalf("balance = %d, want 2000", bal)
	}
}
