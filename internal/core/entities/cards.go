package entities

import "github.com/JonMunkholm/salesetl/internal/core"

// Cards is the registry key for dim_card_details.
const Cards = "cards"

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:      Cards,
			Label:    "Card Details",
			Table:    "dim_card_details",
			Snapshot: "cleaned_card_data.csv",
			Order:    2,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "card_number", Type: core.FieldText, Required: true},
			{Name: "expiry_date", Type: core.FieldDate, Required: true},
			{Name: "date_payment_confirmed", Type: core.FieldDate, Required: true},
			{Name: "card_provider", Type: core.FieldText, Required: true},
		},
		Clean: CleanCards,
	})
}

// CleanCards normalises card records read from the card details PDF.
//
// card_number is reduced to its digits but never used to filter rows;
// a number with no digits at all becomes null.
func CleanCards(c *core.Cleaning) {
	c.Apply("card_number", core.DigitsOnly)

	c.Apply("expiry_date", parseExpiry)
	c.DropNull("invalid_expiry_date", "expiry_date")

	c.Apply("date_payment_confirmed", core.ToDate)
	c.DropNull("invalid_payment_date", "date_payment_confirmed")

	c.ApplyExcept(numericText,
		"card_number", "card_provider", "expiry_date", "date_payment_confirmed")

	c.Keep("unknown_card_provider", func(r core.Record) bool {
		return core.ValidCardProvider(r["card_provider"])
	})
	c.DropEmptyRows()
}

func parseExpiry(v any) any {
	return core.ToDateLayout(v, core.CardExpiryLayouts...)
}

// numericText coerces string values to numbers; other values are kept.
func numericText(v any) any {
	if _, ok := v.(string); ok {
		return core.ToNumber(v)
	}
	return v
}
