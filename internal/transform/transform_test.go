package transform

import (
	"reflect"
	"testing"
)

func TestCharacter(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"AB   ", "AB"},
		{"ALICE", "ALICE"},
		{"     ", nil},
		{"", nil},
		{"  AB ", "  AB"}, // leading spaces are data
	}
	for _, c := range cases {
		if got := Character(c.in); got != c.want {
			t.Errorf("Character(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLogical(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"T", true},
		{"t", true},
		{"Y", true},
		{"F", false},
		{"n", false},
		{"?", nil},
		{" ", nil},
		{"", nil},
		{"X", "X"}, // unknown marker passes through
	}
	for _, c := range cases {
		if got := Logical(c.in); got != c.want {
			t.Errorf("Logical(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDate(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"20230115", "2023-01-15"},
		{"20230220", "2023-02-20"},
		{"        ", nil},
		{"", nil},
		{"2023011", "2023011"},   // too short, pass through
		{"2023O115", "2023O115"}, // letter O, pass through
	}
	for _, c := range cases {
		if got := Date(c.in); got != c.want {
			t.Errorf("Date(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNumeric(t *testing.T) {
	if got := Integer("     42"); got != int64(42) {
		t.Errorf("Integer = %v (%T), want int64 42", got, got)
	}
	if got := Integer("  -7"); got != int64(-7) {
		t.Errorf("Integer = %v, want -7", got)
	}
	if got := Integer("       "); got != nil {
		t.Errorf("Integer blank = %v, want nil", got)
	}
	if got := Integer("12x"); got != "12x" {
		t.Errorf("Integer junk = %v, want pass-through", got)
	}
	if got := Float("  3.14"); got != 3.14 {
		t.Errorf("Float = %v, want 3.14", got)
	}
	if got := Float(" "); got != nil {
		t.Errorf("Float blank = %v, want nil", got)
	}
}

func TestIdentitySharedAcrossRows(t *testing.T) {
	// Funcs are stateless: repeated application yields identical results.
	in := []string{"A ", "B", "  "}
	var first, second []any
	for _, s := range in {
		first = append(first, Identity(s))
	}
	for _, s := range in {
		second = append(second, Identity(s))
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Identity not stable: %v vs %v", first, second)
	}
}
