// Package sqlstmt turns the SQL text stored in sqlite_schema and supplied on
// the CLI into structured column lists and query shapes. It leans on
// xwb1989/sqlparser wherever SQLite's dialect is close enough to MySQL's to
// get away with it, and falls back to pragmatic string scanning for the
// handful of constructs the parser doesn't model (CREATE INDEX, SQLite's
// "INTEGER PRIMARY KEY AUTOINCREMENT").
package sqlstmt

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// Column describes one column of a CREATE TABLE statement.
type Column struct {
	Name            string
	Type            string
	IsIntegerPK     bool // INTEGER PRIMARY KEY: the rowid-alias column (spec §4.3)
	IsAutoIncrement bool
}

// ErrUnsupportedStatement is returned when the SQL text isn't a statement
// shape this package models.
var ErrUnsupportedStatement = fmt.Errorf("unsupported SQL statement")

// ParseCreateTable extracts the column list from a CREATE TABLE statement,
// as stored verbatim in sqlite_schema.sql (spec §4.7).
func ParseCreateTable(sql string) ([]Column, error) {
	normalized := normalizeSQLiteToMySQL(sql)

	stmt, err := sqlparser.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse create table %q: %w", sql, err)
	}

	ddl, ok := stmt.(*sqlparser.DDL)
	if !ok || ddl.Action != "create" || ddl.TableSpec == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStatement, sql)
	}

	columns := make([]Column, len(ddl.TableSpec.Columns))
	for i, col := range ddl.TableSpec.Columns {
		isAutoIncrement := bool(col.Type.Autoincrement)
		columns[i] = Column{
			Name:            col.Name.String(),
			Type:            col.Type.Type,
			IsIntegerPK:     isAutoIncrement && strings.EqualFold(col.Type.Type, "integer"),
			IsAutoIncrement: isAutoIncrement,
		}
	}

	// SQLite also treats a bare "INTEGER PRIMARY KEY" (no AUTOINCREMENT) as
	// the rowid alias; sqlparser's PrimaryKeyOpt on the table, rather than
	// the column, carries that case, so it's checked separately against the
	// raw text (sqlparser doesn't model SQLite's column-level PRIMARY KEY).
	markBareIntegerPrimaryKey(sql, columns)

	return columns, nil
}

// markBareIntegerPrimaryKey scans the original SQL for "<col> INTEGER
// PRIMARY KEY" without AUTOINCREMENT, which sqlparser's MySQL grammar
// doesn't recognize as a column constraint. Grounded on the pragmatic
// string-scan fallback used for CREATE INDEX parsing.
func markBareIntegerPrimaryKey(sql string, columns []Column) {
	upper := strings.ToUpper(sql)
	for i := range columns {
		if columns[i].IsIntegerPK {
			continue
		}
		if !strings.EqualFold(columns[i].Type, "integer") {
			continue
		}
		needle := strings.ToUpper(columns[i].Name) + " INTEGER PRIMARY KEY"
		if strings.Contains(upper, needle) {
			columns[i].IsIntegerPK = true
		}
	}
}

// normalizeSQLiteToMySQL rewrites SQLite-specific syntax into something
// sqlparser's MySQL grammar accepts, generalized from the handful of fixups
// the teacher implementation applied ad hoc per call site.
func normalizeSQLiteToMySQL(sql string) string {
	normalized := strings.ReplaceAll(sql, `"`, "")
	normalized = strings.ReplaceAll(normalized, "primary key autoincrement", "AUTO_INCREMENT PRIMARY KEY")
	normalized = strings.ReplaceAll(normalized, "PRIMARY KEY AUTOINCREMENT", "AUTO_INCREMENT PRIMARY KEY")
	return strings.TrimSpace(normalized)
}

// ParseCreateTablePragmatic extracts column names the way spec §4.7
// describes: split the text inside the outermost parentheses on commas,
// and take the first whitespace-separated token of each definition as the
// column name. No nested parentheses or quoted identifiers are assumed.
// This is the fallback path when ParseCreateTable's grammar-based parse
// rejects the statement (e.g. a quoted identifier sqlparser's MySQL
// grammar doesn't accept).
func ParseCreateTablePragmatic(sql string) ([]Column, error) {
	start := strings.Index(sql, "(")
	end := strings.LastIndex(sql, ")")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("%w: no column list in %q", ErrUnsupportedStatement, sql)
	}

	defs := strings.Split(sql[start+1:end], ",")
	columns := make([]Column, 0, len(defs))
	for _, def := range defs {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}
		fields := strings.Fields(def)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		isIntegerPK := strings.Contains(strings.ToUpper(def), "INTEGER PRIMARY KEY")
		columns = append(columns, Column{
			Name:        name,
			IsIntegerPK: isIntegerPK,
		})
	}
	return columns, nil
}

// ParseCreateIndex extracts the table name and indexed column from a CREATE
// INDEX statement. sqlparser has no CREATE INDEX grammar at all, so this is
// a pragmatic scan (grounded on the teacher's parseIndexColumns/
// parseIndexTableName), scoped to the single-column indexes spec §4.7
// requires.
func ParseCreateIndex(sql string) (table string, column string, err error) {
	upper := strings.ToUpper(sql)

	onPos := strings.Index(upper, " ON ")
	if onPos == -1 {
		return "", "", fmt.Errorf("%w: no ON clause in %q", ErrUnsupportedStatement, sql)
	}
	rest := sql[onPos+4:]

	parenPos := strings.Index(rest, "(")
	closeParenPos := strings.LastIndex(rest, ")")
	if parenPos == -1 || closeParenPos == -1 || parenPos >= closeParenPos {
		return "", "", fmt.Errorf("%w: no column list in %q", ErrUnsupportedStatement, sql)
	}

	table = strings.TrimSpace(rest[:parenPos])
	columnsPart := rest[parenPos+1 : closeParenPos]
	cols := strings.Split(columnsPart, ",")
	if len(cols) == 0 {
		return "", "", fmt.Errorf("%w: empty column list in %q", ErrUnsupportedStatement, sql)
	}

	return table, strings.TrimSpace(cols[0]), nil
}

// Select is the parsed shape of a SELECT statement this tool supports
// (spec §4.8): a single table, a column list ("*" or explicit names), and
// an optional WHERE expression tree.
type Select struct {
	Table   string
	Columns []string // empty means "*"
	Where   sqlparser.Expr
}

// ParseSelect parses a SELECT statement's table, projection, and WHERE
// clause.
func ParseSelect(sql string) (*Select, error) {
	normalized := normalizeSQLiteToMySQL(sql)

	stmt, err := sqlparser.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse select %q: %w", sql, err)
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStatement, sql)
	}
	if len(sel.From) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one table in %q", ErrUnsupportedStatement, sql)
	}
	aliased, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported FROM clause in %q", ErrUnsupportedStatement, sql)
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported FROM clause in %q", ErrUnsupportedStatement, sql)
	}

	var columns []string
	for _, expr := range sel.SelectExprs {
		switch e := expr.(type) {
		case *sqlparser.StarExpr:
			// "*": leave Columns empty.
		case *sqlparser.AliasedExpr:
			colName, ok := e.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, fmt.Errorf("%w: unsupported select expression in %q", ErrUnsupportedStatement, sql)
			}
			columns = append(columns, colName.Name.String())
		default:
			return nil, fmt.Errorf("%w: unsupported select expression in %q", ErrUnsupportedStatement, sql)
		}
	}

	var where sqlparser.Expr
	if sel.Where != nil {
		where = sel.Where.Expr
	}

	return &Select{Table: tableName.Name.String(), Columns: columns, Where: where}, nil
}

// ParseCountStar recognizes "SELECT COUNT(*) FROM <t>" (spec §4.8 item 3),
// the one aggregate form this tool supports. It's matched before
// ParseSelect gets a chance, since sqlparser models COUNT(*) as a function
// call this package otherwise has no use for.
func ParseCountStar(sql string) (table string, ok bool) {
	upper := strings.ToUpper(sql)
	if !strings.Contains(upper, "COUNT(*)") {
		return "", false
	}
	fromPos := strings.Index(upper, " FROM ")
	if fromPos == -1 {
		return "", false
	}
	rest := strings.TrimSpace(sql[fromPos+6:])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
