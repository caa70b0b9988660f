package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// FromSQLite reads table and view declarations from a SQLite database.
// The database is opened read-only; column types come from the declared
// SQL types.
func FromSQLite(path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to open database", Err: err}
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to open database", Err: err}
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to connect to database", Err: err}
	}
	db.SetMaxOpenConns(1)

	names, err := tableNames(db)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to list tables", Err: err}
	}
	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		cols, err := tableColumns(db, name)
		if err != nil {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("failed to read columns of %s", name), Err: err}
		}
		tables = append(tables, &Table{Name: name, Columns: cols})
	}
	c, err := New(tables...)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error(), Err: err}
	}
	return c, nil
}

func tableNames(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name COLLATE BINARY`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func tableColumns(db *sql.DB, table string) ([]Column, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid      int
			name     string
			declType string
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: name, TypeName: SQLType(declType)})
	}
	return cols, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLType maps a declared SQL column type to a type name, following
// SQLite's affinity rules where they apply. Unrecognised declarations map
// to "" (unknown).
func SQLType(decl string) string {
	d := strings.ToUpper(strings.TrimSpace(decl))
	if i := strings.IndexByte(d, '('); i >= 0 {
		d = strings.TrimSpace(d[:i])
	}
	switch {
	case d == "":
		return ""
	case d == "BOOLEAN" || d == "BOOL":
		return "bool"
	case d == "DATE":
		return "date"
	case d == "TIME":
		return "time"
	case strings.HasPrefix(d, "TIMESTAMP") || d == "DATETIME":
		return "timestamp"
	case d == "INTERVAL":
		return "interval"
	case strings.Contains(d, "INT"):
		return "int"
	case strings.Contains(d, "CHAR") || strings.Contains(d, "CLOB") || strings.Contains(d, "TEXT"):
		return "text"
	case strings.Contains(d, "REAL") || strings.Contains(d, "FLOA") || strings.Contains(d, "DOUB") ||
		d == "NUMERIC" || d == "DECIMAL":
		return "float"
	}
	return ""
}
