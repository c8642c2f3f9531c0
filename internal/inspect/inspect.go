package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dyne/tabexport/internal/export"
	"github.com/dyne/tabexport/internal/log"
	"github.com/dyne/tabexport/internal/schema"
	"github.com/jmoiron/sqlx"
)

type Options struct {
	DBPath      string
	BusyTimeout time.Duration
	// Tables are the names configured for export; they are marked in the
	// listing and reported when absent.
	Tables []string
	Out    io.Writer
	Logger *log.Logger
}

func Run(ctx context.Context, opts Options) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	db, err := export.Connect(ctx, opts.DBPath, opts.BusyTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := schema.Load(ctx, db)
	if err != nil {
		return err
	}

	selected := map[string]bool{}
	var missing []string
	for _, name := range opts.Tables {
		tbl, ok := s.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		selected[tbl.Name] = true
	}

	fmt.Fprintln(out, "Tables:")
	for _, name := range s.Names() {
		tbl := s.Tables[name]
		count, err := rowCount(ctx, db, name)
		if err != nil {
			return err
		}
		kind := ""
		if tbl.Type == "view" {
			kind = " view"
		}
		mark := ""
		if selected[name] {
			mark = " [export]"
		}
		fmt.Fprintf(out, "- %s%s (%d rows)%s\n", name, kind, count, mark)
		if cols := describeColumns(tbl); cols != "" {
			fmt.Fprintf(out, "  columns: %s\n", cols)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(out, "Missing: %s\n", strings.Join(missing, ", "))
	}
	if opts.Logger != nil {
		opts.Logger.Debugf("inspect complete")
	}
	return nil
}

func rowCount(ctx context.Context, db *sqlx.DB, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(1) FROM %s", schema.QuoteIdent(table))
	if err := db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

func describeColumns(tbl *schema.Table) string {
	parts := make([]string, 0, len(tbl.Columns))
	for _, c := range tbl.Columns {
		part := c.Name
		if c.Type != "" {
			part += " " + c.Type
		}
		if c.PK {
			part += " pk"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
