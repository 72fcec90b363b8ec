package core

// cleaning.go runs an entity recipe over a private copy of a raw batch.
//
// A recipe is an ordered list of steps on a *Cleaning: column coercions,
// row filters and column removals. Row filters take a reason string; the
// number of rows each reason removed ends up in the Report so callers can
// see why a batch shrank without the recipe doing any logging itself.

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Drop counts rows removed for one reason.
type Drop struct {
	Reason string `json:"reason"`
	Rows   int    `json:"rows"`
}

// Report summarises one entity clean.
type Report struct {
	Entity   string        `json:"entity"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Dropped  []Drop        `json:"dropped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// DroppedTotal returns the number of rows removed for any reason.
func (r Report) DroppedTotal() int {
	n := 0
	for _, d := range r.Dropped {
		n += d.Rows
	}
	return n
}

// DroppedBy returns the rows removed for reason.
func (r Report) DroppedBy(reason string) int {
	for _, d := range r.Dropped {
		if d.Reason == reason {
			return d.Rows
		}
	}
	return 0
}

// LogValue implements slog.LogValuer for structured logging.
func (r Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("entity", r.Entity),
		slog.Int("rows_in", r.RowsIn),
		slog.Int("rows_out", r.RowsOut),
		slog.Int("dropped", r.DroppedTotal()),
	}
	for _, d := range r.Dropped {
		attrs = append(attrs, slog.Int("dropped_"+d.Reason, d.Rows))
	}
	return slog.GroupValue(attrs...)
}

// Cleaning holds a batch while a recipe runs.
type Cleaning struct {
	entity  string
	batch   Batch
	dropped []Drop
	log     *slog.Logger
}

// Batch returns the batch in its current state.
func (c *Cleaning) Batch() Batch { return c.batch }

// Apply replaces every value of column with fn(value).
// Columns absent from the header are left alone.
func (c *Cleaning) Apply(column string, fn func(any) any) {
	if !c.batch.HasColumn(column) {
		return
	}
	for _, r := range c.batch.Rows {
		r[column] = fn(r[column])
	}
}

// ApplyEach runs Apply for each named column.
func (c *Cleaning) ApplyEach(fn func(any) any, columns ...string) {
	for _, col := range columns {
		c.Apply(col, fn)
	}
}

// ApplyExcept applies fn to every column not listed in skip.
func (c *Cleaning) ApplyExcept(fn func(any) any, skip ...string) {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	for _, col := range c.batch.Columns {
		if !skipped[col] {
			c.Apply(col, fn)
		}
	}
}

// Set computes column from the whole record, adding the column if needed.
func (c *Cleaning) Set(column string, fn func(Record) any) {
	if !c.batch.HasColumn(column) {
		c.batch.Columns = append(c.batch.Columns, column)
	}
	for _, r := range c.batch.Rows {
		r[column] = fn(r)
	}
}

// Keep retains rows for which keep returns true. Removed rows are counted
// under reason.
func (c *Cleaning) Keep(reason string, keep func(Record) bool) {
	kept := c.batch.Rows[:0]
	for _, r := range c.batch.Rows {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	removed := len(c.batch.Rows) - len(kept)
	clear(c.batch.Rows[len(kept):])
	c.batch.Rows = kept
	if removed == 0 {
		return
	}
	c.log.Debug("rows dropped", "entity", c.entity, "reason", reason, "rows", removed)

	for i := range c.dropped {
		if c.dropped[i].Reason == reason {
			c.dropped[i].Rows += removed
			return
		}
	}
	c.dropped = append(c.dropped, Drop{Reason: reason, Rows: removed})
}

// DropEmptyRows removes rows where every value is null.
func (c *Cleaning) DropEmptyRows() {
	c.Keep("empty_row", func(r Record) bool { return !r.AllNull() })
}

// DropNull removes rows where any of columns is null.
func (c *Cleaning) DropNull(reason string, columns ...string) {
	c.Keep(reason, func(r Record) bool {
		for _, col := range columns {
			if IsNull(r[col]) {
				return false
			}
		}
		return true
	})
}

// DropColumns removes the named columns where present.
func (c *Cleaning) DropColumns(names ...string) {
	for _, name := range names {
		if c.batch.dropColumn(name) {
			c.log.Debug("column dropped", "entity", c.entity, "column", name)
		}
	}
}

// Clean checks raw against def's field contract and runs def's recipe on a
// copy of it. The raw batch is never modified. A *StructuralError is
// returned when required fields are missing; row-level problems never
// produce an error.
func Clean(def EntityDefinition, raw Batch, log *slog.Logger) (Batch, Report, error) {
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()
	report := Report{Entity: def.Info.Key, RowsIn: raw.Len()}

	batch := raw.Clone()
	if def.NormalizeHeader != nil {
		batch.renameColumns(def.NormalizeHeader)
	}

	if err := CheckFields(def.Info.Key, def.FieldSpecs, batch.Columns); err != nil {
		return Batch{}, report, err
	}
	if def.Clean == nil {
		return Batch{}, report, fmt.Errorf("%s: no clean recipe registered", def.Info.Key)
	}

	c := &Cleaning{entity: def.Info.Key, batch: batch, log: log}
	def.Clean(c)

	c.batch.Types = declaredTypes(def, c.batch.Columns)

	report.RowsOut = c.batch.Len()
	report.Dropped = c.dropped
	report.Duration = time.Since(start)

	log.Debug("entity cleaned", "report", report)
	return c.batch, report, nil
}

// declaredTypes keeps the field types of def that name a column in columns.
func declaredTypes(def EntityDefinition, columns []string) map[string]FieldType {
	types := make(map[string]FieldType)
	for name, t := range def.FieldTypes() {
		if slices.Contains(columns, name) {
			types[name] = t
		}
	}
	return types
}
