package extract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows serves fixed values through the pgx.Rows interface.
type fakeRows struct {
	columns []string
	rows    [][]any
	pos     int
	err     error
	closed  bool
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	for i, d := range dest {
		s, ok := d.(*string)
		if !ok {
			return fmt.Errorf("unsupported scan target %T", d)
		}
		*s = row[i].(string)
	}
	return nil
}

type fakeQuerier struct {
	rows  *fakeRows
	err   error
	query string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.query = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestTableExtractor(t *testing.T) {
	born := time.Date(1968, 10, 16, 0, 0, 0, 0, time.UTC)
	id := [16]byte{0x93, 0xca, 0xf1, 0x82, 0xe4, 0xe9, 0x4c, 0x6e, 0xbe, 0xbb, 0x60, 0xa1, 0xa9, 0xdc, 0xcb, 0xc1}
	rows := &fakeRows{
		columns: []string{"index", "first_name", "date_of_birth", "user_uuid", "balance"},
		rows: [][]any{
			{int32(0), "Sophie", born, id, pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}},
			{int32(1), nil, "1968 October 16", "93caf182", pgtype.Numeric{}},
		},
	}
	q := &fakeQuerier{rows: rows}

	b, err := (&TableExtractor{DB: q, Table: "legacy_users"}).Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "legacy_users"`, q.query)
	assert.True(t, rows.closed)
	assert.Equal(t, []string{"index", "first_name", "date_of_birth", "user_uuid", "balance"}, b.Columns)
	require.Equal(t, 2, b.Len())

	r := b.Rows[0]
	assert.Equal(t, int64(0), r["index"])
	assert.Equal(t, born, r["date_of_birth"])
	assert.Equal(t, "93caf182-e4e9-4c6e-bebb-60a1a9dccbc1", r["user_uuid"])
	assert.Equal(t, 12.5, r["balance"])
	assert.Nil(t, b.Rows[1]["first_name"])
	assert.Nil(t, b.Rows[1]["balance"])
}

func TestTableExtractor_QuotesTableName(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{}}
	_, err := (&TableExtractor{DB: q, Table: `orders"; DROP TABLE x; --`}).Extract(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(q.query, `SELECT * FROM "orders""; DROP`))
}

func TestTableExtractor_Errors(t *testing.T) {
	_, err := (&TableExtractor{DB: &fakeQuerier{}}).Extract(context.Background())
	assert.Error(t, err)

	q := &fakeQuerier{err: errors.New("connection refused")}
	_, err = (&TableExtractor{DB: q, Table: "orders_table"}).Extract(context.Background())
	assert.ErrorContains(t, err, "connection refused")

	q = &fakeQuerier{rows: &fakeRows{err: errors.New("reset by peer")}}
	_, err = (&TableExtractor{DB: q, Table: "orders_table"}).Extract(context.Background())
	assert.ErrorContains(t, err, "reset by peer")
}

func TestListTables(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		columns: []string{"table_name"},
		rows:    [][]any{{"legacy_store_details"}, {"legacy_users"}, {"orders_table"}},
	}}

	tables, err := ListTables(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy_store_details", "legacy_users", "orders_table"}, tables)
	assert.Contains(t, q.query, "information_schema.tables")
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "int16", in: int16(3), want: int64(3)},
		{name: "float32", in: float32(0.5), want: 0.5},
		{name: "bytes", in: []byte("abc"), want: "abc"},
		{name: "bool", in: true, want: true},
		{name: "NaN numeric", in: pgtype.Numeric{NaN: true, Valid: true}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeValue(tt.in))
		})
	}
}
