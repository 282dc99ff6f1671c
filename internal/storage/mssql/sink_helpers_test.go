package mssql

import (
	"testing"

	"dbfload/internal/schema"
)

func TestMsIdentQuoting(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"people":      "[people]",
		"odd name":    "[odd name]",
		"has]bracket": "[has]]bracket]",
	}
	for in, want := range cases {
		if got := msIdent(in); got != want {
			t.Errorf("msIdent(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMsFQN(t *testing.T) {
	t.Parallel()

	if got := msFQN("dbo.people"); got != "[dbo].[people]" {
		t.Errorf("msFQN = %s", got)
	}
	if got := msFQN("people"); got != "[people]" {
		t.Errorf("msFQN unqualified = %s", got)
	}
}

func TestSQLTypeMapping(t *testing.T) {
	t.Parallel()

	cases := map[schema.Kind]string{
		schema.KindText:   "NVARCHAR(MAX)",
		schema.KindBigint: "BIGINT",
		schema.KindDouble: "FLOAT",
		schema.KindBool:   "BIT",
		schema.KindDate:   "DATE",
	}
	for k, want := range cases {
		got, err := sqlType(k)
		if err != nil {
			t.Errorf("sqlType(%s): %v", k, err)
			continue
		}
		if got != want {
			t.Errorf("sqlType(%s) = %s, want %s", k, got, want)
		}
	}
	if _, err := sqlType(schema.Kind("xml")); err == nil {
		t.Error("unknown kind should be rejected")
	}
}
