// Package engine resolves a table name against the schema, chooses
// between an index probe and a full scan for a WHERE clause, and projects
// the requested columns (spec §4.8).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/halvorsen-io/litequery/internal/btree"
	"github.com/halvorsen-io/litequery/internal/pager"
	"github.com/halvorsen-io/litequery/internal/record"
	"github.com/halvorsen-io/litequery/internal/schema"
	"github.com/halvorsen-io/litequery/internal/sqlstmt"
)

// Engine ties the pager, schema, and B-tree walkers together for one
// query (spec §5: one engine per invocation, one file handle, one query
// in flight).
type Engine struct {
	Pager  *pager.Pager
	Schema *schema.Schema
}

// Open opens the database at path, parses its header, and reads its
// schema, returning a ready Engine.
func Open(ctx context.Context, path string, opts ...pager.Option) (*Engine, error) {
	p, err := pager.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	s, err := schema.Read(ctx, p)
	if err != nil {
		p.Close()
		return nil, NewDatabaseError("read_schema", err, nil)
	}
	return &Engine{Pager: p, Schema: s}, nil
}

// Close releases the pager's file handle.
func (e *Engine) Close() error { return e.Pager.Close() }

// DBInfo returns the page size and the schema root page's cell count, the
// latter standing in for "number of tables" (spec §4.8 item 1).
func (e *Engine) DBInfo(ctx context.Context) (pageSize int, tableCount int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	count, _, err := btree.PageCellCount(e.Pager, 1)
	if err != nil {
		return 0, 0, NewDatabaseError("dbinfo", err, nil)
	}
	return e.Pager.Header.PageSize, count, nil
}

// TableNames returns every schema row name except sqlite_sequence, in
// schema order (spec §4.8 item 2 — every schema row, not only tables).
func (e *Engine) TableNames() []string {
	names := make([]string, 0, len(e.Schema.RowNames))
	for _, name := range e.Schema.RowNames {
		if name == "sqlite_sequence" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// CountRows implements SELECT COUNT(*) FROM <t> (spec §4.8 item 3): the
// cell count of the table's root page when it's a leaf, falling back to a
// full scan when the root is interior (spec.md's documented tolerance for
// either behavior, resolved here in favor of the exact count).
func (e *Engine) CountRows(ctx context.Context, table string) (int, error) {
	t, err := e.Schema.Table(table)
	if err != nil {
		return 0, NewDatabaseError("count", err, map[string]any{"table": table})
	}

	count, pageType, err := btree.PageCellCount(e.Pager, t.RootPage)
	if err != nil {
		return 0, NewDatabaseError("count", err, map[string]any{"table": table})
	}
	if pageType == btree.TypeLeafTable {
		return count, nil
	}

	walker := btree.NewTable(e.Pager, t.RootPage, t.RowidAliasIndex)
	total := 0
	err = walker.Scan(ctx, func(uint64, record.Row) error {
		total++
		return nil
	})
	if err != nil {
		return 0, NewDatabaseError("count", err, map[string]any{"table": table})
	}
	return total, nil
}

// Execute dispatches a SQL command string to CountRows or Select depending
// on its shape (spec §4.8 items 3 and 4), returning output lines ready to
// print and the Plan used (UsedIndex is always false for a count).
func (e *Engine) Execute(ctx context.Context, sqlText string) (lines []string, plan Plan, err error) {
	if table, ok := sqlstmt.ParseCountStar(sqlText); ok {
		count, err := e.CountRows(ctx, table)
		if err != nil {
			return nil, Plan{}, err
		}
		return []string{strconv.Itoa(count)}, Plan{Table: table}, nil
	}
	return e.Select(ctx, sqlText)
}

// Select implements SELECT <cols> FROM <t> [WHERE <col> <op> '<val>']
// (spec §4.8 item 4), returning one string per matching row (columns
// already joined with "|", per §6's output format) and the Plan used.
func (e *Engine) Select(ctx context.Context, sqlText string) (lines []string, plan Plan, err error) {
	parsed, err := sqlstmt.ParseSelect(sqlText)
	if err != nil {
		return nil, Plan{}, NewDatabaseError("parse_select", err, nil)
	}

	table, err := e.Schema.Table(parsed.Table)
	if err != nil {
		return nil, Plan{}, NewDatabaseError("select", err, map[string]any{"table": parsed.Table})
	}
	plan.Table = parsed.Table

	projection, err := resolveProjection(table, parsed.Columns)
	if err != nil {
		return nil, Plan{}, NewDatabaseError("select", err, map[string]any{"table": parsed.Table})
	}

	rows, err := e.executeWhere(ctx, table, parsed.Where, &plan)
	if err != nil {
		return nil, Plan{}, NewDatabaseError("select", err, map[string]any{"table": parsed.Table})
	}

	lines = make([]string, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, len(projection))
		for i, idx := range projection {
			parts[i] = row[idx].String()
		}
		lines = append(lines, strings.Join(parts, "|"))
	}
	return lines, plan, nil
}

// resolveProjection maps requested column names to their positions in the
// table's declared column order (spec §4.8, "Projection"). An empty
// request (SELECT *) projects every column in order.
func resolveProjection(table *schema.Table, requested []string) ([]int, error) {
	if len(requested) == 0 {
		all := make([]int, len(table.Columns))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	indices := make([]int, len(requested))
	for i, name := range requested {
		idx := table.ColumnIndex(name)
		if idx == -1 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		indices[i] = idx
	}
	return indices, nil
}

// executeWhere picks index-vs-scan per spec §4.8's "Index selection" rule:
// a bare `col = value` predicate with a matching index probes the index
// and seeks each rowid; anything else (no predicate, other operators,
// AND/OR/parens) falls back to a full scan, filtered in Go for everything
// beyond a bare equality.
func (e *Engine) executeWhere(ctx context.Context, table *schema.Table, where sqlparser.Expr, plan *Plan) ([]record.Row, error) {
	if cmp, ok := asIndexableEquality(where); ok {
		if idx, ok := table.IndexOn(cmp.column); ok {
			plan.UsedIndex = true
			plan.IndexName = idx.Name
			return e.selectByIndex(ctx, table, idx, cmp.value)
		}
	}

	slog.Default().Debug("full scan", "table", table.Name, "has_where", where != nil)
	walker := btree.NewTable(e.Pager, table.RootPage, table.RowidAliasIndex)
	var rows []record.Row
	err := walker.Scan(ctx, func(_ uint64, row record.Row) error {
		if where == nil {
			rows = append(rows, row)
			return nil
		}
		match, err := evaluateWhere(where, row, table)
		if err != nil {
			return err
		}
		if match {
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// selectByIndex probes the index for value, then seeks each matching
// rowid against the table's root (spec §4.8's documented optimization).
func (e *Engine) selectByIndex(ctx context.Context, table *schema.Table, idx schema.Index, value record.Value) ([]record.Row, error) {
	slog.Default().Debug("index probe", "table", table.Name, "index", idx.Name)
	indexWalker := btree.NewIndex(e.Pager, idx.RootPage)
	rowids, err := indexWalker.Find(ctx, value)
	if err != nil {
		return nil, err
	}

	tableWalker := btree.NewTable(e.Pager, table.RootPage, table.RowidAliasIndex)
	rows := make([]record.Row, 0, len(rowids))
	for _, rowid := range rowids {
		row, found, err := tableWalker.Seek(ctx, rowid)
		if err != nil {
			return nil, err
		}
		if found {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type indexableEquality struct {
	column string
	value  record.Value
}

// asIndexableEquality reports whether where is exactly one `col = 'val'`
// or `col = N` comparison — the only shape spec §4.8 allows to trigger
// index selection.
func asIndexableEquality(where sqlparser.Expr) (indexableEquality, bool) {
	cmp, ok := where.(*sqlparser.ComparisonExpr)
	if !ok || cmp.Operator != "=" {
		return indexableEquality{}, false
	}
	col, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return indexableEquality{}, false
	}
	value, err := sqlValueToRecordValue(cmp.Right)
	if err != nil {
		return indexableEquality{}, false
	}
	return indexableEquality{column: col.Name.String(), value: value}, true
}

// evaluateWhere evaluates a WHERE expression against a decoded row
// (teacher's evaluateWhereClause, generalized): comparisons, AND, OR, and
// parenthesized sub-expressions (§4.8 DOMAIN supplement).
func evaluateWhere(expr sqlparser.Expr, row record.Row, table *schema.Table) (bool, error) {
	switch node := expr.(type) {
	case *sqlparser.ComparisonExpr:
		return evaluateComparison(node, row, table)
	case *sqlparser.AndExpr:
		left, err := evaluateWhere(node.Left, row, table)
		if err != nil || !left {
			return false, err
		}
		return evaluateWhere(node.Right, row, table)
	case *sqlparser.OrExpr:
		left, err := evaluateWhere(node.Left, row, table)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return evaluateWhere(node.Right, row, table)
	case *sqlparser.ParenExpr:
		return evaluateWhere(node.Expr, row, table)
	default:
		return false, fmt.Errorf("%w: unsupported WHERE expression %T", ErrUnknownCommand, expr)
	}
}

func evaluateComparison(cmp *sqlparser.ComparisonExpr, row record.Row, table *schema.Table) (bool, error) {
	col, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return false, fmt.Errorf("left side of comparison must be a column name")
	}
	idx := table.ColumnIndex(col.Name.String())
	if idx == -1 {
		return false, fmt.Errorf("%w: %s", ErrUnknownColumn, col.Name.String())
	}

	want, err := sqlValueToRecordValue(cmp.Right)
	if err != nil {
		return false, err
	}
	return compareRecordValues(row[idx], want, cmp.Operator)
}

// sqlValueToRecordValue converts a SQL literal operand into the record
// value it would compare against.
func sqlValueToRecordValue(expr sqlparser.Expr) (record.Value, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return record.Value{}, fmt.Errorf("unsupported comparison operand %T", expr)
	}
	switch val.Type {
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(val.Val), 10, 64)
		if err != nil {
			return record.Value{}, err
		}
		return record.IntegerValue(n), nil
	default:
		return record.TextValue(string(val.Val)), nil
	}
}

// compareRecordValues applies operator to (got, want), comparing
// numerically when both are integers and byte-wise otherwise (teacher's
// compareValues, corrected to compare integers numerically rather than as
// strings).
func compareRecordValues(got, want record.Value, operator string) (bool, error) {
	var cmp int
	if got.Kind == record.KindInteger && want.Kind == record.KindInteger {
		switch {
		case got.Int < want.Int:
			cmp = -1
		case got.Int > want.Int:
			cmp = 1
		}
	} else {
		gotStr, wantStr := got.String(), want.String()
		switch {
		case gotStr < wantStr:
			cmp = -1
		case gotStr > wantStr:
			cmp = 1
		}
	}

	switch operator {
	case "=":
		return cmp == 0, nil
	case "!=", "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("unsupported comparison operator: %s", operator)
	}
}
