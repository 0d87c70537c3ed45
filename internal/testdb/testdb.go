// Package testdb dá aos testes de repositório um Postgres real.
// Os testes que dependem dele são pulados quando TEST_POSTGRES_DSN
// não está definido.
package testdb

import (
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/lib/pq"
)

// Connect abre a conexão de teste, aplica o schema e limpa as tabelas.
func Connect(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN is not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	applySchema(t, db)
	reset(t, db)
	return db
}

func applySchema(t *testing.T, db *sql.DB) {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate migrations dir")
	}
	path := filepath.Join(filepath.Dir(file), "..", "..", "migrations", "0001_init.sql")
	schema, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func reset(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE bets, transactions, ledger_entries, events, users CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// SeedUser insere um usuário com o saldo dado, em centavos.
func SeedUser(t *testing.T, db *sql.DB, id string, balanceCents int64) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO users (id, username, first_name, balance_cents) VALUES ($1,$1,$1,$2)`,
		id, balanceCents); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// SeedEvent insere um evento ativo com odds fixas e devolve o id.
func SeedEvent(t *testing.T, db *sql.DB, id, externalID, name string, home, draw, away float64) {
	t.Helper()
	ext := sql.NullString{String: externalID, Valid: externalID != ""}
	if _, err := db.Exec(`
		INSERT INTO events (id, external_id, name, odds_home, odds_draw, odds_away, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,TRUE)`,
		id, ext, name, home, draw, away); err != nil {
		t.Fatalf("seed event: %v", err)
	}
}
