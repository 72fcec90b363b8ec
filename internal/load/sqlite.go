package load

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// OpenSQLite opens (creating if needed) a SQLite warehouse file.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; this also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// SQLiteLoader replaces warehouse tables in a local SQLite database.
type SQLiteLoader struct {
	DB *sql.DB
}

var sqliteTypes = map[ColumnType]string{
	TypeText:      "TEXT",
	TypeFloat:     "REAL",
	TypeInteger:   "INTEGER",
	TypeBool:      "INTEGER",
	TypeTimestamp: "TIMESTAMP",
	TypeDate:      "DATE",
}

// Replace drops and recreates table and inserts every row in a single
// transaction. Dates and timestamps are stored as text.
func (l *SQLiteLoader) Replace(ctx context.Context, table string, b core.Batch) (int64, error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	quoted := quoteIdent(table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return 0, fmt.Errorf("drop %s: %w", table, err)
	}

	types := ColumnTypes(b)
	defs := make([]string, len(b.Columns))
	cols := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		cols[i] = quoteIdent(col)
		defs[i] = cols[i] + " " + sqliteTypes[types[i]]
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+quoted+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}
	if len(b.Columns) == 0 {
		return 0, tx.Commit()
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quoted+" ("+strings.Join(cols, ", ")+") VALUES ("+ph+")")
	if err != nil {
		return 0, fmt.Errorf("prepare insert %s: %w", table, err)
	}
	defer stmt.Close()

	var n int64
	args := make([]any, len(b.Columns))
	for _, r := range b.Rows {
		for j, col := range b.Columns {
			args[j] = sqliteValue(r[col], types[j])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert into %s row %d: %w", table, n+1, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", table, err)
	}
	return n, nil
}

// sqliteValue stores dates and timestamps as text and booleans as 0 or 1.
func sqliteValue(v any, t ColumnType) any {
	switch x := coerce(v, t).(type) {
	case time.Time:
		if t == TypeDate {
			return FormatDate(x)
		}
		return FormatTime(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return x
	}
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// textValue renders a value for a text column or a CSV cell.
func textValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case time.Time:
		return FormatTime(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
