package core

// FieldType describes the clean value type of a field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
	FieldInteger
	FieldDate
	FieldTimestamp
)

// String returns the lower-case name of the type.
func (t FieldType) String() string {
	switch t {
	case FieldNumeric:
		return "numeric"
	case FieldInteger:
		return "integer"
	case FieldDate:
		return "date"
	case FieldTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

// FieldSpec declares one field of an entity's raw input.
type FieldSpec struct {
	Name     string    // Field name after header normalisation
	Type     FieldType // Type after cleaning
	Required bool      // Field must be present in the raw batch header
}

// EntityInfo contains naming information about an entity.
type EntityInfo struct {
	Key      string // Unique identifier: "users"
	Label    string // Display name: "Users"
	Table    string // Destination table: "dim_users"
	Snapshot string // Snapshot file name: "cleaned_user_data.csv"
	Order    int    // Position in a full pipeline run
}

// CleanFunc runs an entity's recipe against a Cleaning.
type CleanFunc func(c *Cleaning)

// EntityDefinition contains everything needed to clean one entity.
type EntityDefinition struct {
	Info       EntityInfo
	FieldSpecs []FieldSpec

	// NormalizeHeader, if set, rewrites column names before the field
	// contract is checked.
	NormalizeHeader func(string) string

	Clean CleanFunc
}

// FieldTypes returns the declared type of every field by name.
func (d EntityDefinition) FieldTypes() map[string]FieldType {
	types := make(map[string]FieldType, len(d.FieldSpecs))
	for _, spec := range d.FieldSpecs {
		types[spec.Name] = spec.Type
	}
	return types
}
