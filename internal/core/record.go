package core

import (
	"maps"
	"math"
	"slices"
	"strings"
	"time"
)

// Record is a single row flowing through the cleaner.
// A missing key and a nil value both mean null.
type Record map[string]any

// Batch is an ordered collection of records sharing one header.
type Batch struct {
	Columns []string
	Rows    []Record

	// Types holds the declared type of columns known to the entity.
	// Clean sets it; columns missing from it have no declared type.
	Types map[string]FieldType
}

// NewBatch creates a batch with the given header and no rows.
func NewBatch(columns ...string) Batch {
	return Batch{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (b Batch) Len() int { return len(b.Rows) }

// Clone returns a deep copy of the header and every record.
// Values themselves are immutable scalars, so copying the maps is enough.
func (b Batch) Clone() Batch {
	out := Batch{
		Columns: slices.Clone(b.Columns),
		Rows:    make([]Record, len(b.Rows)),
		Types:   maps.Clone(b.Types),
	}
	for i, r := range b.Rows {
		cp := make(Record, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// HasColumn reports whether the header contains name.
func (b Batch) HasColumn(name string) bool {
	return slices.Contains(b.Columns, name)
}

// Column returns the values of one column in row order.
func (b Batch) Column(name string) []any {
	vals := make([]any, len(b.Rows))
	for i, r := range b.Rows {
		vals[i] = r[name]
	}
	return vals
}

// Append adds a record, extending the header with any unseen keys in sorted order.
func (b *Batch) Append(r Record) {
	var extra []string
	for k := range r {
		if !slices.Contains(b.Columns, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	b.Columns = append(b.Columns, extra...)
	b.Rows = append(b.Rows, r)
}

// dropColumn removes a column from the header and every record.
func (b *Batch) dropColumn(name string) bool {
	i := slices.Index(b.Columns, name)
	if i < 0 {
		return false
	}
	b.Columns = slices.Delete(b.Columns, i, i+1)
	delete(b.Types, name)
	for _, r := range b.Rows {
		delete(r, name)
	}
	return true
}

// renameColumns rewrites every header and record key through fn.
func (b *Batch) renameColumns(fn func(string) string) {
	for i, c := range b.Columns {
		b.Columns[i] = fn(c)
	}
	if b.Types != nil {
		renamed := make(map[string]FieldType, len(b.Types))
		for k, t := range b.Types {
			renamed[fn(k)] = t
		}
		b.Types = renamed
	}
	for i, r := range b.Rows {
		renamed := make(Record, len(r))
		for k, v := range r {
			renamed[fn(k)] = v
		}
		b.Rows[i] = renamed
	}
}

// IsNull reports whether v counts as a missing value: nil, NaN,
// a zero time, or a string that is empty after trimming.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	case time.Time:
		return x.IsZero()
	default:
		return false
	}
}

// AllNull reports whether every value in the record is null.
func (r Record) AllNull() bool {
	for _, v := range r {
		if !IsNull(v) {
			return false
		}
	}
	return true
}
