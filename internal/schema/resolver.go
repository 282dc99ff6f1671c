// Package schema resolves a DBF field list into a destination table shape and
// a per-field transform plan. Resolution happens once per transfer; the hot
// row loop only indexes into the compiled plan.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"dbfload/internal/dbf"
	"dbfload/internal/transform"
)

// Kind is a portable column type tag. Storage backends map kinds onto their
// dialect's SQL type names.
type Kind string

const (
	KindText   Kind = "text"
	KindBigint Kind = "bigint"
	KindDouble Kind = "double"
	KindBool   Kind = "bool"
	KindDate   Kind = "date"
)

// Column is one destination column, derived 1:1 from a source field.
type Column struct {
	Name string
	Kind Kind
}

// ErrUnmappedType reports a source field whose type tag has no destination
// column type. It blocks DDL generation but not the transform plan.
var ErrUnmappedType = errors.New("schema: unmapped source type")

// Resolve derives the destination columns and the index-aligned transform
// plan for the given fields.
//
// An unmapped type tag (memo fields, binary dBASE 7 types) yields a non-nil
// error naming every offending field, because a table must not be created
// with a guessed column type. The returned transforms are still complete:
// unmapped fields fall back to the identity transform, since raw text is
// always representable.
func Resolve(fields []dbf.Field) ([]Column, []transform.Func, error) {
	cols := make([]Column, len(fields))
	funcs := make([]transform.Func, len(fields))
	var unmapped []string

	for i, f := range fields {
		cols[i].Name = f.Name
		switch f.Type {
		case 'C':
			cols[i].Kind = KindText
			funcs[i] = transform.Character
		case 'N':
			if f.Decimals > 0 {
				cols[i].Kind = KindDouble
				funcs[i] = transform.Float
			} else {
				cols[i].Kind = KindBigint
				funcs[i] = transform.Integer
			}
		case 'F':
			cols[i].Kind = KindDouble
			funcs[i] = transform.Float
		case 'L':
			cols[i].Kind = KindBool
			funcs[i] = transform.Logical
		case 'D':
			cols[i].Kind = KindDate
			funcs[i] = transform.Date
		default:
			cols[i].Kind = KindText
			funcs[i] = transform.Identity
			unmapped = append(unmapped, fmt.Sprintf("%s (type %c)", f.Name, f.Type))
		}
	}

	if len(unmapped) > 0 {
		return cols, funcs, fmt.Errorf("%w: %s", ErrUnmappedType, strings.Join(unmapped, ", "))
	}
	return cols, funcs, nil
}

// Names returns the column names in order, as used for bulk-load column
// lists.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
