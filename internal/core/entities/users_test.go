package entities

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/salesetl/internal/core"
)

var quiet = slog.New(slog.DiscardHandler)

func clean(t *testing.T, key string, raw core.Batch) (core.Batch, core.Report) {
	t.Helper()
	def, ok := core.Get(key)
	require.True(t, ok, "entity %q not registered", key)
	out, report, err := core.Clean(def, raw, quiet)
	require.NoError(t, err)
	return out, report
}

// assertIdempotent cleans an already-cleaned batch and expects no change.
func assertIdempotent(t *testing.T, key string, cleaned core.Batch) {
	t.Helper()
	again, report := clean(t, key, cleaned)
	assert.Equal(t, cleaned.Columns, again.Columns)
	assert.Equal(t, cleaned.Rows, again.Rows)
	assert.Zero(t, report.DroppedTotal())
}

func userRow(i int) core.Record {
	return core.Record{
		"index":         fmt.Sprint(i),
		"first_name":    "sophie",
		"last_name":     "mÜller",
		"company":       "  acme and sons ",
		"email_address": fmt.Sprintf("  User%d@Example.COM ", i),
		"address":       "12 high street",
		"country":       "Germany",
		"country_code":  "de",
		"phone_number":  "+49(0)1234",
		"date_of_birth": "1968 October 16",
		"join_date":     "2016-04-28",
		"user_uuid":     fmt.Sprintf(" 93caf182-e4e9-4c6e-bebb-60a1a9dc%04d ", i),
	}
}

func userBatch(rows ...core.Record) core.Batch {
	b := core.NewBatch("index", "first_name", "last_name", "company", "email_address",
		"address", "country", "country_code", "phone_number", "date_of_birth", "join_date", "user_uuid")
	for _, r := range rows {
		b.Append(r)
	}
	return b
}

func TestCleanUsers_DropsNullBirthDate(t *testing.T) {
	var rows []core.Record
	for i := range 10 {
		r := userRow(i)
		if i == 4 {
			r["date_of_birth"] = nil
		}
		rows = append(rows, r)
	}

	out, report := clean(t, Users, userBatch(rows...))

	assert.Equal(t, 10, report.RowsIn)
	assert.Equal(t, 9, out.Len())
	assert.Equal(t, 1, report.DroppedBy("invalid_date"))
}

func TestCleanUsers_Normalises(t *testing.T) {
	out, _ := clean(t, Users, userBatch(userRow(7)))
	require.Equal(t, 1, out.Len())

	r := out.Rows[0]
	assert.Equal(t, int64(7), r["index"])
	assert.Equal(t, "Sophie", r["first_name"])
	assert.Equal(t, "Müller", r["last_name"])
	assert.Equal(t, "Acme And Sons", r["company"])
	assert.Equal(t, "12 High Street", r["address"])
	assert.Equal(t, "user7@example.com", r["email_address"])
	assert.Equal(t, "DE", r["country_code"])
	assert.Equal(t, "93caf182-e4e9-4c6e-bebb-60a1a9dc0007", r["user_uuid"])
	assert.Equal(t, time.Date(1968, 10, 16, 0, 0, 0, 0, time.UTC), r["date_of_birth"])
	assert.Equal(t, time.Date(2016, 4, 28, 0, 0, 0, 0, time.UTC), r["join_date"])
}

func TestCleanUsers_Filters(t *testing.T) {
	badEmail := userRow(1)
	badEmail["email_address"] = "not-an-email"
	badJoin := userRow(2)
	badJoin["join_date"] = "GFJQ2AAEQ8"
	empty := core.Record{}
	good := userRow(3)
	good["email_address"] = "  Jane@Example.COM "

	out, report := clean(t, Users, userBatch(badEmail, badJoin, empty, good))

	require.Equal(t, 1, out.Len())
	assert.Equal(t, "jane@example.com", out.Rows[0]["email_address"])
	assert.Equal(t, 1, report.DroppedBy("invalid_email"))
	assert.Equal(t, 1, report.DroppedBy("invalid_date"))
	assert.Equal(t, 1, report.DroppedBy("empty_row"))
}

func TestCleanUsers_Idempotent(t *testing.T) {
	out, _ := clean(t, Users, userBatch(userRow(1), userRow(2)))
	assertIdempotent(t, Users, out)
}

func TestCleanUsers_MissingColumn(t *testing.T) {
	def, _ := core.Get(Users)
	_, _, err := core.Clean(def, core.NewBatch("user_uuid", "first_name"), quiet)
	assert.ErrorIs(t, err, core.ErrMissingColumns)
}
