package transactions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/radieske/betting-house-core/internal/ledger"
	"github.com/radieske/betting-house-core/internal/testdb"
	"github.com/radieske/betting-house-core/internal/transactions"
)

func TestDepositFlow(t *testing.T) {
	db := testdb.Connect(t)
	repo := transactions.NewPostgres(db)
	led := ledger.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 0)

	// pedido fica pendente e sem valor; saldo não muda
	tx, err := repo.RequestDeposit(ctx, "u1", "pix:123")
	if err != nil {
		t.Fatalf("request deposit: %v", err)
	}
	if tx.Status != transactions.StatusPending || tx.AmountCents != 0 {
		t.Fatalf("pending tx = %+v, want PENDING amount 0", tx)
	}
	if bal, _ := led.GetBalance(ctx, "u1"); bal != 0 {
		t.Fatalf("balance = %d, want 0 antes da aprovação", bal)
	}

	// aprovação credita o valor informado pelo operador
	approved, err := repo.ApproveDeposit(ctx, tx.ID, 10000)
	if err != nil {
		t.Fatalf("approve deposit: %v", err)
	}
	if approved.Status != transactions.StatusApproved || approved.AmountCents != 10000 {
		t.Fatalf("approved tx = %+v", approved)
	}
	if bal, _ := led.GetBalance(ctx, "u1"); bal != 10000 {
		t.Fatalf("balance = %d, want 10000", bal)
	}
}

func TestApproveDepositTwice(t *testing.T) {
	db := testdb.Connect(t)
	repo := transactions.NewPostgres(db)
	led := ledger.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 0)

	tx, err := repo.RequestDeposit(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ApproveDeposit(ctx, tx.ID, 5000); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ApproveDeposit(ctx, tx.ID, 5000); !errors.Is(err, transactions.ErrInvalidState) {
		t.Fatalf("second approve err = %v, want ErrInvalidState", err)
	}
	if bal, _ := led.GetBalance(ctx, "u1"); bal != 5000 {
		t.Fatalf("balance = %d, want 5000 (crédito não dobra)", bal)
	}
}

func TestApproveDepositNotFound(t *testing.T) {
	db := testdb.Connect(t)
	repo := transactions.NewPostgres(db)

	if _, err := repo.ApproveDeposit(context.Background(), "00000000-0000-0000-0000-000000000000", 100); !errors.Is(err, transactions.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWithdrawEscrow(t *testing.T) {
	db := testdb.Connect(t)
	repo := transactions.NewPostgres(db)
	led := ledger.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 10000)

	// débito acontece no pedido, não na aprovação
	tx, newBalance, err := repo.RequestWithdraw(ctx, "u1", 4000)
	if err != nil {
		t.Fatalf("request withdraw: %v", err)
	}
	if newBalance != 6000 {
		t.Fatalf("newBalance = %d, want 6000", newBalance)
	}
	if tx.Status != transactions.StatusPending || tx.AmountCents != 4000 {
		t.Fatalf("pending tx = %+v", tx)
	}

	// aprovação só muda o status; saldo fica como está
	approved, err := repo.ApproveWithdraw(ctx, tx.ID)
	if err != nil {
		t.Fatalf("approve withdraw: %v", err)
	}
	if approved.Status != transactions.StatusApproved {
		t.Fatalf("approved tx = %+v", approved)
	}
	if bal, _ := led.GetBalance(ctx, "u1"); bal != 6000 {
		t.Fatalf("balance = %d, want 6000 após aprovação", bal)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	db := testdb.Connect(t)
	repo := transactions.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 1000)

	if _, _, err := repo.RequestWithdraw(ctx, "u1", 5000); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	// pedido rejeitado não deixa transação pra trás
	list, err := repo.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("transactions = %d, want 0", len(list))
	}
}

func TestApproveWithdrawTwice(t *testing.T) {
	db := testdb.Connect(t)
	repo := transactions.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 10000)

	tx, _, err := repo.RequestWithdraw(ctx, "u1", 2000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ApproveWithdraw(ctx, tx.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ApproveWithdraw(ctx, tx.ID); !errors.Is(err, transactions.ErrInvalidState) {
		t.Fatalf("second approve err = %v, want ErrInvalidState", err)
	}
}

func TestApproveMismatchedKind(t *testing.T) {
	db := testdb.Connect(t)
	repo := transactions.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 10000)

	dep, err := repo.RequestDeposit(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ApproveWithdraw(ctx, dep.ID); !errors.Is(err, transactions.ErrInvalidState) {
		t.Fatalf("approve-withdraw on deposit err = %v, want ErrInvalidState", err)
	}

	wd, _, err := repo.RequestWithdraw(ctx, "u1", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ApproveDeposit(ctx, wd.ID, 1000); !errors.Is(err, transactions.ErrInvalidState) {
		t.Fatalf("approve-deposit on withdraw err = %v, want ErrInvalidState", err)
	}
}

func TestListForUserOrder(t *testing.T) {
	db := testdb.Connect(t)
	repo := transactions.NewPostgres(db)
	ctx := context.Background()
	testdb.SeedUser(t, db, "u1", 10000)
	testdb.SeedUser(t, db, "u2", 0)

	if _, err := repo.RequestDeposit(ctx, "u1", ""); err != nil {
		t.Fatal(err)
	}
	if _, _, err := repo.RequestWithdraw(ctx, "u1", 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.RequestDeposit(ctx, "u2", ""); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("transactions = %d, want 2 (só as do u1)", len(list))
	}
}
