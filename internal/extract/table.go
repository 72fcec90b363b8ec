package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// Querier is the subset of *pgxpool.Pool used by TableExtractor.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TableExtractor reads a whole table from the source database.
type TableExtractor struct {
	DB    Querier
	Table string
}

// Extract runs SELECT * on the table and returns every row.
func (e *TableExtractor) Extract(ctx context.Context) (core.Batch, error) {
	if e.Table == "" {
		return core.Batch{}, fmt.Errorf("table extractor: no table name")
	}

	query := "SELECT * FROM " + pgx.Identifier{e.Table}.Sanitize()
	rows, err := e.DB.Query(ctx, query)
	if err != nil {
		return core.Batch{}, fmt.Errorf("query %s: %w", e.Table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	batch := core.NewBatch(columns...)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return core.Batch{}, fmt.Errorf("read %s row %d: %w", e.Table, batch.Len()+1, err)
		}
		rec := make(core.Record, len(columns))
		for i, v := range values {
			if i < len(columns) {
				rec[columns[i]] = normalizeValue(v)
			}
		}
		batch.Rows = append(batch.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return core.Batch{}, fmt.Errorf("read %s: %w", e.Table, err)
	}
	return batch, nil
}

// ListTables returns the names of the tables in the public schema.
func ListTables(ctx context.Context, db Querier) ([]string, error) {
	rows, err := db.Query(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// normalizeValue maps pgx driver values onto the raw value model:
// nil, string, float64, int64, bool and time.Time.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil, string, float64, int64, bool, time.Time:
		return x
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case []byte:
		return string(x)
	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
