package sqlite

import (
	"testing"

	"dbfload/internal/schema"
)

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"people":    `"people"`,
		"odd name":  `"odd name"`,
		`has"quote`: `"has""quote"`,
	}
	for in, want := range cases {
		if got := quoteIdent(in); got != want {
			t.Errorf("quoteIdent(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSQLTypeMapping(t *testing.T) {
	t.Parallel()

	cases := map[schema.Kind]string{
		schema.KindText:   "TEXT",
		schema.KindBigint: "INTEGER",
		schema.KindBool:   "INTEGER",
		schema.KindDouble: "REAL",
		schema.KindDate:   "TEXT",
	}
	for k, want := range cases {
		if got := sqlType(k); got != want {
			t.Errorf("sqlType(%s) = %s, want %s", k, got, want)
		}
	}
}
