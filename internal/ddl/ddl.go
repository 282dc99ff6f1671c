// Package ddl holds a small, dialect-agnostic model for table definitions
// and a baseline CREATE TABLE renderer. It emits identifiers verbatim;
// quoting and dialect clauses (IF NOT EXISTS, type names) are the concern of
// the storage backends that consume it.
package ddl

import (
	"fmt"
	"strings"
)

// ColumnDef describes one column of a table definition.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds a table name (possibly schema-qualified, dotted form) and
// its ordered columns.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// BuildCreateTableSQL renders a CREATE TABLE statement from t. Each column is
// rendered as "<name> <type> [NOT NULL]". The statement carries no dialect
// extensions; backends wrap or rewrite it as needed.
func BuildCreateTableSQL(t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cn := strings.TrimSpace(c.Name)
		if cn == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		ct := strings.TrimSpace(c.SQLType)
		if ct == "" {
			return "", fmt.Errorf("ddl: column %s missing SQL type", cn)
		}
		def := cn + " " + ct
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", name, strings.Join(cols, ",\n  ")), nil
}
