// Package core is the cleaning engine for the sales warehouse ETL.
//
// It has no I/O and no configuration: extractors hand it a raw [Batch],
// it returns a cleaned batch plus a [Report], and loaders take it from
// there. Everything here can be used from the pipeline, the CLI or tests
// without modification.
//
// # Value Model
//
// A [Batch] is an ordered header plus rows; each row is a [Record] keyed by
// column name. Values are nil, string, float64, int64, bool or time.Time.
// A missing key, a nil value and a blank string all count as null.
//
// # Entity Registry
//
// Entities are registered at init time using [Register]. Each
// [EntityDefinition] carries everything needed to clean one source:
//
//	core.Register(core.EntityDefinition{
//	    Info: core.EntityInfo{Key: "products", Table: "dim_products"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "date_added", Type: core.FieldDate, Required: true},
//	        {Name: "weight", Type: core.FieldNumeric, Required: true},
//	    },
//	    Clean: func(c *core.Cleaning) {
//	        c.Apply("date_added", core.ToDate)
//	        c.DropNull("invalid_date", "date_added")
//	    },
//	})
//
// # Cleaning
//
// [Clean] copies the raw batch, normalises its header, checks the field
// contract and then runs the recipe. Missing required fields fail the
// whole entity with a [*StructuralError]. Bad values never do: coercers
// turn them into nil and row filters drop them, counting each drop under
// a reason in the [Report].
//
// Recipes are idempotent: cleaning an already-clean batch returns it
// unchanged.
package core
