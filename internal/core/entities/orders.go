package entities

import "github.com/JonMunkholm/salesetl/internal/core"

// Orders is the registry key for orders_table.
const Orders = "orders"

// orderDropColumns never reach the warehouse.
var orderDropColumns = []string{"1", "first_name", "last_name", "level_0"}

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:      Orders,
			Label:    "Orders",
			Table:    "orders_table",
			Snapshot: "cleaned_orders_data.csv",
			Order:    5,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "date_uuid", Type: core.FieldText, Required: true},
			{Name: "user_uuid", Type: core.FieldText, Required: true},
			{Name: "card_number", Type: core.FieldText, Required: true},
			{Name: "store_code", Type: core.FieldText, Required: true},
			{Name: "product_code", Type: core.FieldText, Required: true},
			{Name: "product_quantity", Type: core.FieldInteger, Required: true},
		},
		Clean: CleanOrders,
	})
}

// CleanOrders removes empty rows and the non-analytic columns.
func CleanOrders(c *core.Cleaning) {
	c.DropEmptyRows()
	c.DropColumns(orderDropColumns...)
}
