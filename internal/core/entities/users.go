package entities

import "github.com/JonMunkholm/salesetl/internal/core"

// Users is the registry key for dim_users.
const Users = "users"

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:      Users,
			Label:    "Users",
			Table:    "dim_users",
			Snapshot: "cleaned_user_data.csv",
			Order:    1,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "user_uuid", Type: core.FieldText, Required: true},
			{Name: "first_name", Type: core.FieldText, Required: true},
			{Name: "last_name", Type: core.FieldText, Required: true},
			{Name: "email_address", Type: core.FieldText, Required: true},
			{Name: "country_code", Type: core.FieldText, Required: true},
			{Name: "join_date", Type: core.FieldDate, Required: true},
			{Name: "date_of_birth", Type: core.FieldDate, Required: true},
			{Name: "index", Type: core.FieldInteger},
			{Name: "company", Type: core.FieldText},
			{Name: "address", Type: core.FieldText},
		},
		Clean: CleanUsers,
	})
}

// CleanUsers normalises legacy user records.
// Rows without a parseable join date and birth date, or without a
// well-formed email address, are dropped.
func CleanUsers(c *core.Cleaning) {
	c.DropEmptyRows()

	c.ApplyEach(core.ToDate, "join_date", "date_of_birth")
	c.DropNull("invalid_date", "join_date", "date_of_birth")

	c.Apply("country_code", core.Upper)
	c.Apply("index", core.ToInteger)
	c.ApplyEach(core.TitleCase, "first_name", "last_name")
	c.ApplyEach(core.Chain(core.Strip, core.TitleCase), "company", "address")
	c.Apply("user_uuid", core.Strip)

	c.Apply("email_address", core.Chain(core.Strip, core.Lower))
	c.Keep("invalid_email", func(r core.Record) bool {
		return core.ValidEmail(r["email_address"])
	})
}
