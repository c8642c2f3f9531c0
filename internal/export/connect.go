package export

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const DriverName = "sqlite"

// DSN builds a read-only connection string. Read-only mode keeps the
// driver from creating a database file that does not exist. The path is
// percent-encoded so '?', '#' and '%' stay part of the file name.
func DSN(path string, busyTimeout time.Duration) string {
	escaped := (&url.URL{Path: path}).EscapedPath()
	return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)", escaped, busyTimeout.Milliseconds())
}

// Connect opens the database at path. Every failure is a connection
// error: missing file, directory, lock timeout, or a file that is not a
// SQLite database.
func Connect(ctx context.Context, path string, busyTimeout time.Duration) (*sqlx.DB, error) {
	if path == "" {
		return nil, newError(KindConnection, "", fmt.Errorf("connect: database path is empty"))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, newError(KindConnection, "", fmt.Errorf("connect %s: %w", path, err))
	}
	if info.IsDir() {
		return nil, newError(KindConnection, "", fmt.Errorf("connect %s: is a directory", path))
	}

	db, err := sqlx.Open(DriverName, DSN(path, busyTimeout))
	if err != nil {
		return nil, newError(KindConnection, "", fmt.Errorf("open %s: %w", path, err))
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, newError(KindConnection, "", fmt.Errorf("ping %s: %w", path, err))
	}
	// The header is only read on first access, so a corrupt file passes
	// Ping but fails here.
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sqlite_master`).Scan(&n); err != nil {
		_ = db.Close()
		return nil, newError(KindConnection, "", fmt.Errorf("read %s: %w", path, err))
	}
	return db, nil
}
