// Package schema reads sqlite_schema (the table B-tree rooted at page 1)
// and exposes each table and index it describes, including the column
// names extracted from their stored CREATE statements (spec §4.7).
package schema

import (
	"context"
	"fmt"

	"github.com/halvorsen-io/litequery/internal/btree"
	"github.com/halvorsen-io/litequery/internal/record"
	"github.com/halvorsen-io/litequery/internal/sqlstmt"
)

// schemaRootPage is always page 1: sqlite_schema is itself a table B-tree
// whose root is the very first page of the file.
const schemaRootPage = 1

// ErrUnknownTable is returned when a table name isn't present in the
// schema.
var ErrUnknownTable = fmt.Errorf("unknown table")

// Table describes one sqlite_schema row of type "table", plus its column
// names and any indexes declared over it.
type Table struct {
	Name     string
	RootPage uint32
	SQL      string
	Columns  []sqlstmt.Column

	// RowidAliasIndex is the column position materialized from rowid
	// (spec §4.3's INTEGER PRIMARY KEY rule), or -1 if none.
	RowidAliasIndex int

	Indexes []Index
}

// ColumnIndex returns the position of a column by name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// IndexOn returns the index over the given column, if one exists.
func (t *Table) IndexOn(column string) (Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Column == column {
			return idx, true
		}
	}
	return Index{}, false
}

// Index describes one sqlite_schema row of type "index".
type Index struct {
	Name     string
	Table    string
	Column   string
	RootPage uint32
	SQL      string
}

// Schema is the set of tables (and their indexes) sqlite_schema describes.
type Schema struct {
	Tables map[string]*Table

	// RowNames holds the name of every sqlite_schema row (tables, indexes,
	// views, triggers alike) in rowid order, for the .tables command
	// (spec §4.8 item 2), which lists every schema row's name rather than
	// just table names.
	RowNames []string
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (*Table, error) {
	t, ok := s.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// TableNames returns every table name, in sqlite_schema's stored order
// (rowid order, which for a freshly-created database matches creation
// order).
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, name := range s.RowNames {
		if _, ok := s.Tables[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// schemaRow is one decoded sqlite_schema record: type, name, tbl_name,
// rootpage, sql (spec §4.7).
type schemaRow struct {
	Type     string
	Name     string
	TblName  string
	RootPage int64
	SQL      string
}

func decodeSchemaRow(row record.Row) (schemaRow, error) {
	if len(row) < 5 {
		return schemaRow{}, fmt.Errorf("sqlite_schema row has %d columns, want 5", len(row))
	}
	return schemaRow{
		Type:     row[0].String(),
		Name:     row[1].String(),
		TblName:  row[2].String(),
		RootPage: row[3].Int,
		SQL:      row[4].String(),
	}, nil
}

// Read walks sqlite_schema and builds the full Schema: every table, its
// columns (parsed from its CREATE TABLE SQL), and every index declared
// over it.
func Read(ctx context.Context, pager btree.Pager) (*Schema, error) {
	walker := btree.NewTable(pager, schemaRootPage, -1)

	var rows []schemaRow
	err := walker.Scan(ctx, func(_ uint64, row record.Row) error {
		r, err := decodeSchemaRow(row)
		if err != nil {
			return err
		}
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sqlite_schema: %w", err)
	}

	schema := &Schema{Tables: make(map[string]*Table)}
	for _, r := range rows {
		schema.RowNames = append(schema.RowNames, r.Name)
	}

	for _, r := range rows {
		if r.Type != "table" {
			continue
		}
		columns, err := sqlstmt.ParseCreateTable(r.SQL)
		if err != nil {
			// The grammar-based parser rejects some SQLite-specific syntax
			// (quoted identifiers, unusual type keywords); the pragmatic
			// scan spec §4.7 describes always succeeds for well-formed
			// CREATE TABLE text.
			columns, err = sqlstmt.ParseCreateTablePragmatic(r.SQL)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", r.Name, err)
			}
		}
		rowidAlias := -1
		for i, c := range columns {
			if c.IsIntegerPK {
				rowidAlias = i
				break
			}
		}
		schema.Tables[r.Name] = &Table{
			Name:            r.Name,
			RootPage:        uint32(r.RootPage),
			SQL:             r.SQL,
			Columns:         columns,
			RowidAliasIndex: rowidAlias,
		}
	}

	for _, r := range rows {
		if r.Type != "index" {
			continue
		}
		tableName, column, err := sqlstmt.ParseCreateIndex(r.SQL)
		if err != nil {
			// An index this package can't parse is skipped rather than
			// failing the whole schema read: queries over it simply fall
			// back to a full scan (spec §4.8).
			continue
		}
		table, ok := schema.Tables[tableName]
		if !ok {
			continue
		}
		table.Indexes = append(table.Indexes, Index{
			Name:     r.Name,
			Table:    tableName,
			Column:   column,
			RootPage: uint32(r.RootPage),
			SQL:      r.SQL,
		})
	}

	return schema, nil
}
