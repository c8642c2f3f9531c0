package schema

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func TestLoadAndResolve(t *testing.T) {
	ctx := context.Background()
	db := openSchemaDB(t)

	s, err := Load(ctx, db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"active_users", "prices", "users"}) {
		t.Fatalf("names = %v", got)
	}
	users, ok := s.Lookup("USERS")
	if !ok {
		t.Fatalf("users not found")
	}
	if users.Type != "table" || len(users.Columns) != 3 {
		t.Fatalf("unexpected users table: %+v", users)
	}
	if !reflect.DeepEqual(users.PrimaryKeys, []string{"id"}) {
		t.Fatalf("primary keys = %v", users.PrimaryKeys)
	}
	if view := s.Tables["active_users"]; view == nil || view.Type != "view" {
		t.Fatalf("view missing: %+v", view)
	}

	name, err := Resolve(ctx, db, "Prices")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if name != "prices" {
		t.Fatalf("resolved %q", name)
	}
	if _, err := Resolve(ctx, db, "users; DROP TABLE users"); !errors.Is(err, ErrNoSuchTable) {
		t.Fatalf("expected ErrNoSuchTable, got %v", err)
	}
	if _, err := Resolve(ctx, db, "sqlite_master"); !errors.Is(err, ErrNoSuchTable) {
		t.Fatalf("internal tables must not resolve, got %v", err)
	}
}

func TestQuoteIdent(t *testing.T) {
	cases := map[string]string{
		"users":      `"users"`,
		`we"ird`:     `"we""ird"`,
		"with space": `"with space"`,
	}
	for in, want := range cases {
		if got := QuoteIdent(in); got != want {
			t.Fatalf("QuoteIdent(%q) = %s, want %s", in, got, want)
		}
	}
}

func openSchemaDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.sqlite")
	db, err := sqlx.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	stmts := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, active INTEGER)`,
		`CREATE TABLE prices (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, price REAL)`,
		`CREATE VIEW active_users AS SELECT id, name FROM users WHERE active = 1`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}
