package importing

import "strings"

// FieldType is the closed set of form field kinds. Validation dispatches
// over this tag; an unknown tag is a schema error, not a row error.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldEmail    FieldType = "email"
	FieldDate     FieldType = "date"
	FieldDropdown FieldType = "dropdown"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldFile     FieldType = "file"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldNumber, FieldEmail, FieldDate,
		FieldDropdown, FieldCheckbox, FieldRadio, FieldFile:
		return true
	}
	return false
}

// ValidationRules carries the optional per-field constraints. Nil pointers
// mean the bound is not set.
type ValidationRules struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// FieldSchema is one form field definition, borrowed read-only from the
// template store for the duration of an import.
type FieldSchema struct {
	ID       string
	Label    string
	Type     FieldType
	Required bool
	Options  []string
	Rules    ValidationRules
}

// NormalizeLabel maps a column header or field label onto the canonical
// form both sides are compared in: trimmed, lowercased, spaces collapsed
// to underscores.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.ReplaceAll(label, " ", "_")
}

// RawRow is one decoded spreadsheet row keyed by normalized column label.
// It lives only between decode and validation.
type RawRow map[string]string

// ValidatedRow is one accepted row: typed values rendered canonically,
// keyed by field id, plus the 1-based file row it came from.
type ValidatedRow struct {
	Row    int
	Values map[string]string
}
