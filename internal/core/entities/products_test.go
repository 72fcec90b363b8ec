package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/salesetl/internal/core"
)

func productBatch(rows ...core.Record) core.Batch {
	b := core.NewBatch("unnamed_0", "product_name", "product_price", "weight",
		"category", "EAN", "date_added", "uuid", "removed", "product_code")
	for _, r := range rows {
		b.Append(r)
	}
	return b
}

func product(weight, ean, added any) core.Record {
	return core.Record{
		"product_name": "FurReal Dazzlin' Dimples",
		"weight":       weight,
		"EAN":          ean,
		"date_added":   added,
		"product_code": "R7-3126933h",
	}
}

func TestCleanProducts_Weights(t *testing.T) {
	raw := productBatch(
		product("1kg", "7425710935115", "2005-12-02"),
		product("500g", "487128731892", "2006-01-09"),
		product("3 x 2g", "1945816904649", "1998-02-27"),
		product("garbage", "3512756643931", "2018-10-24"),
	)

	out, report := clean(t, Products, raw)

	require.Equal(t, 4, out.Len())
	assert.Equal(t, []any{1.0, 0.5, 0.006, 0.0}, out.Column("weight"))
	assert.Zero(t, report.DroppedTotal())
	assert.Equal(t, time.Date(2005, 12, 2, 0, 0, 0, 0, time.UTC), out.Rows[0]["date_added"])
	assertIdempotent(t, Products, out)
}

func TestCleanProducts_DateOrEAN(t *testing.T) {
	raw := productBatch(
		product("1kg", "CCAVRB79VV", "2005-12-02"),
		product("1kg", "4812345678", "09KREHTMWL"),
		product("1kg", "VLPCU81M30", "BPSADIOQOK"),
		product(nil, nil, nil),
	)

	out, report := clean(t, Products, raw)

	require.Equal(t, 2, out.Len())
	assert.Nil(t, out.Rows[1]["date_added"])
	assert.Equal(t, 2, report.DroppedBy("invalid_date_and_ean"))
}

func TestCleanProducts_NumericWeights(t *testing.T) {
	raw := productBatch(
		product(0.75, "7425710935115", "2005-12-02"),
		product(int64(2), "487128731892", "2006-01-09"),
		product(true, "1945816904649", "1998-02-27"),
	)

	out, _ := clean(t, Products, raw)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, []any{0.75, 2.0, 0.0}, out.Column("weight"))
}
