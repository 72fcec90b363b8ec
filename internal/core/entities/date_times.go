package entities

import (
	"time"

	"github.com/JonMunkholm/salesetl/internal/core"
)

// DateTimes is the registry key for dim_date_times.
const DateTimes = "date_times"

// dateHelperColumns are folded into timestamp and then removed.
var dateHelperColumns = []string{"day", "month", "year", "time_period"}

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:      DateTimes,
			Label:    "Date Events",
			Table:    "dim_date_times",
			Snapshot: "cleaned_date_events.csv",
			Order:    6,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "timestamp", Type: core.FieldTimestamp, Required: true},
			{Name: "year", Type: core.FieldInteger},
			{Name: "month", Type: core.FieldInteger},
			{Name: "day", Type: core.FieldInteger},
			{Name: "time_period", Type: core.FieldText},
		},
		Clean: CleanDateTimes,
	})
}

// CleanDateTimes combines year, month, day and time of day into a single
// timestamp. Rows missing any part are dropped. Rows whose timestamp was
// already composed are kept unchanged.
func CleanDateTimes(c *core.Cleaning) {
	c.ApplyEach(core.ToNumber, "month", "year", "day")

	c.Keep("missing_date_part", func(r core.Record) bool {
		if t, ok := r["timestamp"].(time.Time); ok {
			return !t.IsZero()
		}
		for _, col := range []string{"timestamp", "month", "year", "day"} {
			if core.IsNull(r[col]) {
				return false
			}
		}
		return true
	})

	c.Set("timestamp", func(r core.Record) any {
		return core.ComposeTimestamp(r["year"], r["month"], r["day"], r["timestamp"])
	})
	c.DropNull("invalid_timestamp", "timestamp")

	c.DropColumns(dateHelperColumns...)
}
