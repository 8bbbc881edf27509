package importer

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hrpanel/bulk-import/internal/domain/importing"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

// Validator checks raw rows against one template's field list. Pattern
// rules are compiled once up front; a pattern that does not compile is a
// schema error, not a row error.
type Validator struct {
	fields   []importing.FieldSchema
	patterns map[string]*regexp.Regexp
	options  map[string]map[string]bool
}

func NewValidator(fields []importing.FieldSchema) (*Validator, error) {
	v := &Validator{
		fields:   fields,
		patterns: make(map[string]*regexp.Regexp),
		options:  make(map[string]map[string]bool),
	}

	for _, f := range fields {
		if !f.Type.Valid() {
			return nil, fmt.Errorf("field %q has unknown type %q", f.Label, f.Type)
		}
		if f.Rules.Pattern != "" {
			re, err := regexp.Compile(f.Rules.Pattern)
			if err != nil {
				return nil, fmt.Errorf("field %q has invalid pattern: %w", f.Label, err)
			}
			v.patterns[f.ID] = re
		}
		switch f.Type {
		case importing.FieldDropdown, importing.FieldRadio, importing.FieldCheckbox:
			if len(f.Options) == 0 {
				return nil, fmt.Errorf("field %q has no options", f.Label)
			}
			allowed := make(map[string]bool, len(f.Options))
			for _, opt := range f.Options {
				allowed[opt] = true
			}
			v.options[f.ID] = allowed
		}
	}
	return v, nil
}

// ValidateRow resolves each field against the row by normalized label and
// short-circuits at the first failing field. On success it returns the
// canonical field-id to value mapping for the batch writer.
func (v *Validator) ValidateRow(row importing.RawRow) (map[string]string, error) {
	values := make(map[string]string, len(v.fields))

	for _, f := range v.fields {
		raw := strings.TrimSpace(row[importing.NormalizeLabel(f.Label)])
		if raw == "" {
			if f.Required {
				return nil, rowErrorf(f.Label, "Required field '%s' is empty", f.Label)
			}
			continue
		}

		value, err := v.validateField(f, raw)
		if err != nil {
			return nil, err
		}
		// A checkbox cell of only separators normalizes to nothing; that is
		// the empty-value case, not a stored value.
		if value == "" {
			if f.Required {
				return nil, rowErrorf(f.Label, "Required field '%s' is empty", f.Label)
			}
			continue
		}
		values[f.ID] = value
	}
	return values, nil
}

func (v *Validator) validateField(f importing.FieldSchema, raw string) (string, error) {
	switch f.Type {
	case importing.FieldEmail:
		if _, err := mail.ParseAddress(raw); err != nil {
			return "", rowErrorf(f.Label, "Invalid email format in '%s'", f.Label)
		}
		return raw, nil

	case importing.FieldNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", rowErrorf(f.Label, "'%s' must be a number, got %q", f.Label, raw)
		}
		if f.Rules.Min != nil && n < *f.Rules.Min {
			return "", rowErrorf(f.Label, "'%s' must be at least %s", f.Label, formatNumber(*f.Rules.Min))
		}
		if f.Rules.Max != nil && n > *f.Rules.Max {
			return "", rowErrorf(f.Label, "'%s' must be at most %s", f.Label, formatNumber(*f.Rules.Max))
		}
		return formatNumber(n), nil

	case importing.FieldDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.Format("2006-01-02"), nil
			}
		}
		return "", rowErrorf(f.Label, "'%s' is not a valid date: %q", f.Label, raw)

	case importing.FieldDropdown, importing.FieldRadio:
		if !v.options[f.ID][raw] {
			return "", rowErrorf(f.Label, "'%s' must be one of: %s", f.Label, strings.Join(f.Options, ", "))
		}
		return raw, nil

	case importing.FieldCheckbox:
		picked := strings.Split(raw, ",")
		cleaned := make([]string, 0, len(picked))
		for _, p := range picked {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !v.options[f.ID][p] {
				return "", rowErrorf(f.Label, "'%s' must be one of: %s", f.Label, strings.Join(f.Options, ", "))
			}
			cleaned = append(cleaned, p)
		}
		return strings.Join(cleaned, ", "), nil

	case importing.FieldText, importing.FieldTextarea, importing.FieldFile:
		if f.Rules.MinLength != nil && len([]rune(raw)) < *f.Rules.MinLength {
			return "", rowErrorf(f.Label, "'%s' must be at least %d characters", f.Label, *f.Rules.MinLength)
		}
		if f.Rules.MaxLength != nil && len([]rune(raw)) > *f.Rules.MaxLength {
			return "", rowErrorf(f.Label, "'%s' must be at most %d characters", f.Label, *f.Rules.MaxLength)
		}
		if re, ok := v.patterns[f.ID]; ok && !re.MatchString(raw) {
			return "", rowErrorf(f.Label, "'%s' does not match the expected format", f.Label)
		}
		return raw, nil
	}

	return "", rowErrorf(f.Label, "'%s' has unsupported type %q", f.Label, f.Type)
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
