package load

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// TxBeginner is the subset of *pgxpool.Pool used by PostgresLoader.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresLoader replaces warehouse tables in PostgreSQL.
type PostgresLoader struct {
	DB TxBeginner
}

var pgTypes = map[ColumnType]string{
	TypeText:      "TEXT",
	TypeFloat:     "DOUBLE PRECISION",
	TypeInteger:   "BIGINT",
	TypeBool:      "BOOLEAN",
	TypeTimestamp: "TIMESTAMP",
	TypeDate:      "DATE",
}

// Replace drops and recreates table, then bulk-copies every row, all in
// one transaction.
func (l *PostgresLoader) Replace(ctx context.Context, table string, b core.Batch) (int64, error) {
	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	ident := pgx.Identifier{table}.Sanitize()
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident); err != nil {
		return 0, fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(table, b)); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}

	if len(b.Columns) == 0 {
		return 0, tx.Commit(ctx)
	}

	types := ColumnTypes(b)
	rows := make([][]any, len(b.Rows))
	for i, r := range b.Rows {
		row := make([]any, len(b.Columns))
		for j, col := range b.Columns {
			row[j] = coerce(r[col], types[j])
		}
		rows[i] = row
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, b.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s: %w", table, err)
	}
	return n, nil
}

// createTableSQL builds the CREATE TABLE statement for b.
func createTableSQL(table string, b core.Batch) string {
	types := ColumnTypes(b)
	defs := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		defs[i] = pgx.Identifier{col}.Sanitize() + " " + pgTypes[types[i]]
	}
	return "CREATE TABLE " + pgx.Identifier{table}.Sanitize() + " (" + strings.Join(defs, ", ") + ")"
}
