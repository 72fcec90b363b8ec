package entities

import "github.com/JonMunkholm/salesetl/internal/core"

// Products is the registry key for dim_products.
const Products = "products"

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:      Products,
			Label:    "Products",
			Table:    "dim_products",
			Snapshot: "cleaned_product_data.csv",
			Order:    4,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "date_added", Type: core.FieldDate, Required: true},
			{Name: "EAN", Type: core.FieldText, Required: true},
			{Name: "weight", Type: core.FieldNumeric, Required: true},
		},
		Clean: CleanProducts,
	})
}

// CleanProducts parses product dates and converts every weight to kilograms.
// A row is only dropped when it has neither a date nor a numeric EAN.
func CleanProducts(c *core.Cleaning) {
	c.Apply("date_added", core.ToDate)
	c.Keep("invalid_date_and_ean", func(r core.Record) bool {
		return !core.IsNull(r["date_added"]) || core.IsDigits(r["EAN"])
	})

	c.Apply("weight", func(v any) any { return core.ParseWeight(v) })
}
