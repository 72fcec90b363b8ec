package entities

import "github.com/JonMunkholm/salesetl/internal/core"

// Stores is the registry key for dim_store_details.
const Stores = "stores"

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:      Stores,
			Label:    "Store Details",
			Table:    "dim_store_details",
			Snapshot: "cleaned_stores_data.csv",
			Order:    3,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "store_code", Type: core.FieldText, Required: true},
			{Name: "address", Type: core.FieldText, Required: true},
			{Name: "country_code", Type: core.FieldText, Required: true},
			{Name: "continent", Type: core.FieldText, Required: true},
			{Name: "staff_numbers", Type: core.FieldInteger, Required: true},
			{Name: "opening_date", Type: core.FieldDate, Required: true},
			{Name: "longitude", Type: core.FieldNumeric, Required: true},
			{Name: "latitude", Type: core.FieldNumeric, Required: true},
		},
		NormalizeHeader: normalizeHeader,
		Clean:           CleanStores,
	})
}

// CleanStores normalises store records returned by the stores API.
// The redundant lat column is removed.
func CleanStores(c *core.Cleaning) {
	c.DropColumns("lat")
	c.DropEmptyRows()

	c.Apply("staff_numbers", core.Chain(core.DigitsOnly, core.ToInteger))

	c.DropNull("missing_opening_date", "opening_date")
	c.Apply("opening_date", core.ToDate)
	c.DropNull("invalid_opening_date", "opening_date")

	c.ApplyEach(core.ToNumber, "longitude", "latitude")
	c.Apply("continent", NormalizeContinent)
	c.Apply("address", core.TitleCase)
	c.Apply("country_code", core.Upper)

	c.Keep("invalid_country_code", func(r core.Record) bool {
		return core.ValidCountryCode(r["country_code"])
	})
	c.Keep("null_store_code", func(r core.Record) bool {
		return !core.IsNullSentinel(r["store_code"])
	})
}
