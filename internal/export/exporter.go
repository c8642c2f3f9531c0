package export

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dyne/tabexport/internal/schema"
	"github.com/jmoiron/sqlx"
)

// Exporter writes one document per table into OutDir.
type Exporter struct {
	DB     sqlx.QueryerContext
	OutDir string
	Format Format
	// Indent is the JSON indentation width in spaces.
	Indent int
}

type Result struct {
	Table string
	Path  string
	Rows  int
	Bytes int64
}

// Export reads the whole table and replaces its output file.
func (e *Exporter) Export(ctx context.Context, table string) (Result, error) {
	res := Result{Table: table}
	doc, err := ReadTable(ctx, e.DB, table)
	if err != nil {
		return res, err
	}
	res.Table = doc.Table
	res.Rows = len(doc.Records)

	format := e.Format
	if format == "" {
		format = FormatJSON
	}
	var buf bytes.Buffer
	switch format {
	case FormatJSON:
		err = doc.EncodeJSON(&buf, e.Indent)
	case FormatXLSX:
		err = doc.EncodeXLSX(&buf)
	default:
		err = fmt.Errorf("invalid format: %s", format)
	}
	if err != nil {
		return res, newError(KindEncode, table, fmt.Errorf("encode %s: %w", doc.Table, err))
	}

	outDir := e.OutDir
	if outDir == "" {
		outDir = "."
	}
	res.Path = filepath.Join(outDir, OutputName(doc.Table, format))
	if err := writeFile(res.Path, buf.Bytes()); err != nil {
		return res, newError(KindIO, table, err)
	}
	res.Bytes = int64(buf.Len())
	return res, nil
}

// ReadTable resolves table against the database's tables and views and
// reads every row, in retrieval order, into a Document.
func ReadTable(ctx context.Context, db sqlx.QueryerContext, table string) (*Document, error) {
	name, err := schema.Resolve(ctx, db, table)
	if err != nil {
		return nil, newError(KindQuery, table, err)
	}
	from := " FROM " + schema.QuoteIdent(name)
	rows, err := db.QueryxContext(ctx, "SELECT *"+from)
	if err != nil {
		return nil, newError(KindQuery, table, fmt.Errorf("select %s: %w", name, err))
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, newError(KindQuery, table, fmt.Errorf("column types %s: %w", name, err))
	}
	// The driver turns text in DATE/DATETIME/TIMESTAMP columns into
	// time.Time. Reading such columns through unary + drops the declared
	// type, so the stored value comes back unchanged.
	if list, ok := storedValueList(types); ok {
		rows.Close()
		rows, err = db.QueryxContext(ctx, "SELECT "+list+from)
		if err != nil {
			return nil, newError(KindQuery, table, fmt.Errorf("select %s: %w", name, err))
		}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, newError(KindQuery, table, fmt.Errorf("columns %s: %w", name, err))
	}
	cols = uniqueColumns(cols)
	doc := &Document{Table: name, Columns: cols, Records: []Record{}}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, newError(KindQuery, table, fmt.Errorf("scan row %s: %w", name, err))
		}
		doc.Records = append(doc.Records, NewRecord(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, newError(KindQuery, table, fmt.Errorf("iterate %s: %w", name, err))
	}
	return doc, nil
}

// storedValueList returns a select list that reads time-declared columns
// without their declared type. ok is false when no column needs it.
func storedValueList(types []*sql.ColumnType) (string, bool) {
	parts := make([]string, len(types))
	found := false
	for i, t := range types {
		col := schema.QuoteIdent(t.Name())
		if timeDeclared(t.DatabaseTypeName()) {
			parts[i] = "+" + col + " AS " + col
			found = true
			continue
		}
		parts[i] = col
	}
	return strings.Join(parts, ", "), found
}

func timeDeclared(declType string) bool {
	t := strings.ToUpper(strings.TrimSpace(declType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "DATE", "DATETIME", "TIMESTAMP", "TIME":
		return true
	}
	return false
}

// uniqueColumns renames repeated result columns to name:1, name:2 and so
// on, the way SQLite names duplicate view columns, so every record key is
// distinct.
func uniqueColumns(cols []string) []string {
	taken := make(map[string]bool, len(cols))
	for _, c := range cols {
		taken[c] = true
	}
	out := make([]string, len(cols))
	first := make(map[string]bool, len(cols))
	for i, c := range cols {
		if !first[c] {
			first[c] = true
			out[i] = c
			continue
		}
		name := c
		for n := 1; taken[name]; n++ {
			name = c + ":" + strconv.Itoa(n)
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
