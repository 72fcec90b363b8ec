// Package load persists cleaned batches by replacing the destination table.
package load

import (
	"context"
	"time"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// Loader replaces a table with the contents of a batch and returns the
// number of rows written. On error the previous table is left in place.
type Loader interface {
	Replace(ctx context.Context, table string, b core.Batch) (int64, error)
}

// ColumnType is the storage type of a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeFloat
	TypeInteger
	TypeBool
	TypeTimestamp
	TypeDate
)

// ColumnTypes picks a storage type per column. A column declared in
// b.Types gets the matching type whatever its values; other columns are
// inferred from their non-null values.
func ColumnTypes(b core.Batch) []ColumnType {
	types := make([]ColumnType, len(b.Columns))
	for i, col := range b.Columns {
		if ft, ok := b.Types[col]; ok {
			types[i] = declaredType(ft)
			continue
		}
		types[i] = inferColumn(b, col)
	}
	return types
}

func declaredType(ft core.FieldType) ColumnType {
	switch ft {
	case core.FieldNumeric:
		return TypeFloat
	case core.FieldInteger:
		return TypeInteger
	case core.FieldDate:
		return TypeDate
	case core.FieldTimestamp:
		return TypeTimestamp
	default:
		return TypeText
	}
}

// inferColumn types an undeclared column. A column whose values disagree,
// or that is entirely null, is text. Integers mixed with floats widen to float.
func inferColumn(b core.Batch, col string) ColumnType {
	seen := false
	var t ColumnType
	for _, r := range b.Rows {
		v := r[col]
		if v == nil {
			continue
		}
		vt := valueType(v)
		switch {
		case !seen:
			t, seen = vt, true
		case t == vt:
		case isNumeric(t) && isNumeric(vt):
			t = TypeFloat
		default:
			return TypeText
		}
	}
	return t
}

func isNumeric(t ColumnType) bool { return t == TypeFloat || t == TypeInteger }

func valueType(v any) ColumnType {
	switch v.(type) {
	case float64:
		return TypeFloat
	case int64:
		return TypeInteger
	case bool:
		return TypeBool
	case time.Time:
		return TypeTimestamp
	default:
		return TypeText
	}
}

// coerce converts v to the Go value stored in a column of type t.
// Values that do not convert are stored as null.
func coerce(v any, t ColumnType) any {
	if v == nil {
		return nil
	}
	switch t {
	case TypeFloat:
		switch n := core.ToNumber(v).(type) {
		case int64:
			return float64(n)
		case float64:
			return n
		}
		return nil
	case TypeInteger:
		return core.ToInteger(v)
	case TypeDate, TypeTimestamp:
		return core.ToDate(v)
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b
		}
		return nil
	default:
		return textValue(v)
	}
}

// FormatTime renders timestamps the way text sinks store them.
func FormatTime(t time.Time) string {
	return t.Format(core.TimestampLayout)
}

// FormatDate renders dates the way text sinks store them.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
