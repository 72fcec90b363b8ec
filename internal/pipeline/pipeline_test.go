package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/salesetl/internal/core"
	"github.com/JonMunkholm/salesetl/internal/core/entities"
	"github.com/JonMunkholm/salesetl/internal/extract"
	"github.com/JonMunkholm/salesetl/internal/load"
	"github.com/JonMunkholm/salesetl/internal/logging"
)

type fakeLoader struct {
	mu     sync.Mutex
	tables map[string]core.Batch
	err    error
}

func (l *fakeLoader) Replace(_ context.Context, table string, b core.Batch) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	if l.tables == nil {
		l.tables = map[string]core.Batch{}
	}
	l.tables[table] = b
	return int64(b.Len()), nil
}

func productsRaw() core.Batch {
	b := core.NewBatch("EAN", "date_added", "weight")
	b.Rows = []core.Record{
		{"EAN": "1", "date_added": "2005-12-02", "weight": "1kg"},
		{"EAN": "2", "date_added": "2006-01-09", "weight": "500g"},
		{"EAN": "3", "date_added": "1998-02-27", "weight": "3 x 2g"},
		{"EAN": "4", "date_added": "2018-10-24", "weight": "garbage"},
		{"EAN": "x", "date_added": "bad", "weight": "1kg"},
	}
	return b
}

func ordersRaw() core.Batch {
	b := core.NewBatch("date_uuid", "user_uuid", "card_number", "store_code", "product_code", "product_quantity", "level_0")
	b.Append(core.Record{
		"date_uuid": "d", "user_uuid": "u", "card_number": "1", "store_code": "s",
		"product_code": "p", "product_quantity": int64(1), "level_0": int64(0),
	})
	return b
}

func TestRun_LoadsEveryEntity(t *testing.T) {
	loader := &fakeLoader{}
	p := New(loader, WithLogger(logging.Discard()))

	report := p.Run(context.Background(), []Step{
		{Entity: entities.Products, Extractor: extract.Static(productsRaw())},
		{Entity: entities.Orders, Extractor: extract.Static(ordersRaw())},
	})

	require.True(t, report.OK(), "failed: %+v", report.Failed())
	assert.NotEmpty(t, report.ID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	require.Len(t, report.Results, 2)

	products := report.Results[0]
	assert.Equal(t, "dim_products", products.Table)
	assert.Equal(t, 5, products.RowsIn)
	assert.Equal(t, 4, products.RowsOut)
	assert.EqualValues(t, 4, products.Loaded)
	assert.Equal(t, map[string]int{"invalid_date_and_ean": 1}, products.Dropped)
	assert.Equal(t, []any{1.0, 0.5, 0.006, 0.0}, loader.tables["dim_products"].Column("weight"))

	assert.NotContains(t, loader.tables["orders_table"].Columns, "level_0")
}

func TestRun_FailureIsolated(t *testing.T) {
	loader := &fakeLoader{}
	p := New(loader, WithLogger(logging.Discard()))

	sourceDown := errors.New("connection refused")
	report := p.Run(context.Background(), []Step{
		{Entity: entities.Users, Extractor: extract.Func(func(context.Context) (core.Batch, error) {
			return core.Batch{}, sourceDown
		})},
		{Entity: entities.Cards, Extractor: extract.Static(core.NewBatch("card_number"))},
		{Entity: entities.Stores, Extractor: extract.Func(func(context.Context) (core.Batch, error) {
			panic("boom")
		})},
		{Entity: "nope", Extractor: extract.Static(core.NewBatch())},
		{Entity: entities.Products, Extractor: extract.Static(productsRaw())},
	})

	require.Len(t, report.Results, 5)
	assert.Len(t, report.Failed(), 4)
	assert.False(t, report.OK())

	var se *StageError
	require.ErrorAs(t, report.Results[0].Err, &se)
	assert.Equal(t, StageExtract, se.Stage)
	assert.ErrorIs(t, report.Results[0].Err, sourceDown)
	assert.Contains(t, report.Results[0].Error, "connection refused")

	require.ErrorAs(t, report.Results[1].Err, &se)
	assert.Equal(t, StageClean, se.Stage)
	assert.ErrorIs(t, report.Results[1].Err, core.ErrMissingColumns)

	require.ErrorAs(t, report.Results[2].Err, &se)
	assert.Equal(t, StageExtract, se.Stage)
	assert.Contains(t, se.Error(), "panic: boom")

	assert.ErrorIs(t, report.Results[3].Err, ErrUnknownEntity)

	assert.True(t, report.Results[4].OK())
	assert.Len(t, loader.tables, 1, "only products should be replaced")
	_, ok := loader.tables["dim_card_details"]
	assert.False(t, ok)
}

func TestRun_LoadFailure(t *testing.T) {
	p := New(&fakeLoader{err: errors.New("read-only")}, WithLogger(logging.Discard()))
	res := p.RunEntity(context.Background(), Step{Entity: entities.Products, Extractor: extract.Static(productsRaw())})

	var se *StageError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, StageLoad, se.Stage)
	assert.Equal(t, 4, res.RowsOut)
	assert.Zero(t, res.Loaded)
}

func TestRun_Snapshots(t *testing.T) {
	dir := t.TempDir()
	p := New(&fakeLoader{}, WithSnapshots(&load.SnapshotWriter{Dir: dir}), WithLogger(logging.Discard()))

	res := p.RunEntity(context.Background(), Step{Entity: entities.Products, Extractor: extract.Static(productsRaw())})
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, filepath.Join(dir, "cleaned_product_data.csv"), res.Snapshot)
	assert.FileExists(t, res.Snapshot)
}

func TestRun_UsesRunIDFromContext(t *testing.T) {
	ctx := logging.WithRunID(context.Background(), "run-42")
	report := New(&fakeLoader{}, WithLogger(logging.Discard())).Run(ctx, nil)
	assert.Equal(t, "run-42", report.ID)
	assert.True(t, report.OK())
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	report := New(&fakeLoader{}, WithLogger(logging.Discard())).Run(ctx, []Step{
		{Entity: entities.Products, Extractor: extract.Func(func(context.Context) (core.Batch, error) {
			called = true
			return productsRaw(), nil
		})},
	})
	assert.False(t, called)
	assert.ErrorIs(t, report.Results[0].Err, context.Canceled)
}
