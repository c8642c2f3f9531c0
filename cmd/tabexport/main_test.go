package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyne/tabexport/internal/export"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func TestExportCommand(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "prod.sqlite")
	createCLIDB(t, dbPath)
	outDir := filepath.Join(tmp, "out")

	stdout, stderr, err := execute(t, "export", "--db", dbPath, "--out-dir", outDir, "--indent", "0")
	if err != nil {
		t.Fatalf("export: %v (stderr %q)", err, stderr)
	}
	users, err := os.ReadFile(filepath.Join(outDir, "exported_users.json"))
	if err != nil {
		t.Fatalf("read users: %v", err)
	}
	if string(users) != `[{"id":1,"name":"Alice"},{"id":2,"name":"Bea"}]`+"\n" {
		t.Fatalf("users document = %s", users)
	}
	if _, err := os.Stat(filepath.Join(outDir, "exported_prices.json")); err != nil {
		t.Fatalf("prices export missing: %v", err)
	}
	if n := strings.Count(stdout, "INFO: "); n != 2 || !strings.Contains(stdout, " exported users to ") || !strings.Contains(stdout, " exported prices to ") {
		t.Fatalf("expected two status lines, got %q", stdout)
	}
	if stderr != "" {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}

func TestExportCommandConfigAndFlagPrecedence(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "prod.sqlite")
	createCLIDB(t, dbPath)
	outDir := filepath.Join(tmp, "out")
	cfgPath := filepath.Join(tmp, "tabexport.yaml")
	cfg := fmt.Sprintf("database: %s\nout_dir: %s\ntables: [users, prices]\n", filepath.Join(tmp, "missing.sqlite"), outDir)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := execute(t, "export", "--config", cfgPath, "--db", dbPath, "--table", "prices")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "exported_prices.json")); err != nil {
		t.Fatalf("prices export missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "exported_users.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("users should not be exported: %v", err)
	}
}

func TestExportCommandFailures(t *testing.T) {
	tmp := t.TempDir()
	stdout, stderr, err := execute(t, "export", "--db", filepath.Join(tmp, "missing.sqlite"), "--out-dir", tmp)
	if !errors.Is(err, export.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if stdout != "" || stderr != "" {
		t.Fatalf("connection failure must not log: %q %q", stdout, stderr)
	}

	dbPath := filepath.Join(tmp, "prod.sqlite")
	createCLIDB(t, dbPath)
	_, stderr, err = execute(t, "export", "--db", dbPath, "--out-dir", tmp, "--table", "users,orders")
	if !errors.Is(err, export.ErrExportFailed) {
		t.Fatalf("expected ErrExportFailed, got %v", err)
	}
	if !strings.Contains(stderr, "export orders: no such table: orders") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestInspectCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "prod.sqlite")
	createCLIDB(t, dbPath)
	stdout, _, err := execute(t, "inspect", "--db", dbPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(stdout, "- users (2 rows) [export]") || !strings.Contains(stdout, "- prices (1 rows) [export]") {
		t.Fatalf("inspect output = %q", stdout)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func createCLIDB(t *testing.T, path string) {
	t.Helper()
	db, err := sqlx.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	stmts := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`INSERT INTO users (id, name) VALUES (1, 'Alice'), (2, 'Bea')`,
		`CREATE TABLE prices (id INTEGER PRIMARY KEY, name TEXT, price REAL)`,
		`INSERT INTO prices (id, name, price) VALUES (1, 'Kahvi', 1.2)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}
