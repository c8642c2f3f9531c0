package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrNoSuchTable is returned by Resolve for names that are not a table or
// view of the database.
var ErrNoSuchTable = errors.New("no such table")

type Schema struct {
	Tables map[string]*Table
}

type Table struct {
	Name        string
	Type        string
	Columns     []Column
	PrimaryKeys []string
}

type Column struct {
	Name    string
	Type    string
	NotNull bool
	PK      bool
}

const relationFilter = `type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'`

func Load(ctx context.Context, db sqlx.QueryerContext) (*Schema, error) {
	rows, err := db.QueryxContext(ctx, `SELECT name, type FROM sqlite_master WHERE `+relationFilter+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite_master: %w", err)
	}
	var tables []*Table
	for rows.Next() {
		tbl := &Table{}
		if err := rows.Scan(&tbl.Name, &tbl.Type); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sqlite_master: %w", err)
		}
		tables = append(tables, tbl)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sqlite_master: %w", err)
	}
	rows.Close()

	s := &Schema{Tables: map[string]*Table{}}
	for _, tbl := range tables {
		cols, pkCols, err := loadTableInfo(ctx, db, tbl.Name)
		if err != nil {
			return nil, err
		}
		tbl.Columns = cols
		tbl.PrimaryKeys = pkCols
		s.Tables[tbl.Name] = tbl
	}
	return s, nil
}

// Names returns the relation names in lexical order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a relation by name, ignoring case like SQLite does.
func (s *Schema) Lookup(name string) (*Table, bool) {
	if tbl, ok := s.Tables[name]; ok {
		return tbl, true
	}
	for n, tbl := range s.Tables {
		if strings.EqualFold(n, name) {
			return tbl, true
		}
	}
	return nil, false
}

// Resolve checks name against the tables and views of the database and
// returns the name as stored in sqlite_master.
func Resolve(ctx context.Context, db sqlx.QueryerContext, name string) (string, error) {
	var stored string
	err := db.QueryRowxContext(ctx, `SELECT name FROM sqlite_master WHERE `+relationFilter+` AND name = ? COLLATE NOCASE`, name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoSuchTable, name)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	return stored, nil
}

func loadTableInfo(ctx context.Context, db sqlx.QueryerContext, table string) ([]Column, []string, error) {
	rows, err := db.QueryxContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdent(table)))
	if err != nil {
		return nil, nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()
	var cols []Column
	pkMap := map[int]string{}
	for rows.Next() {
		var cid int
		var name, colType string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notnull, &dflt, &pk); err != nil {
			return nil, nil, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		cols = append(cols, Column{Name: name, Type: colType, NotNull: notnull == 1, PK: pk > 0})
		if pk > 0 {
			pkMap[pk] = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate table_info %s: %w", table, err)
	}
	keys := make([]int, 0, len(pkMap))
	for k := range pkMap {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	var pkCols []string
	for _, k := range keys {
		pkCols = append(pkCols, pkMap[k])
	}
	return cols, pkCols, nil
}

func QuoteIdent(name string) string {
	escaped := strings.ReplaceAll(name, "\"", "\"\"")
	return "\"" + escaped + "\""
}
