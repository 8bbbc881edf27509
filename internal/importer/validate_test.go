package importer_test

import (
	"errors"
	"testing"

	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
	"github.com/hrpanel/bulk-import/internal/importer"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func mustValidator(t *testing.T, fields []domain.FieldSchema) *importer.Validator {
	t.Helper()
	v, err := importer.NewValidator(fields)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func assertRowError(t *testing.T, err error, field, message string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected row validation error")
	}
	var rowErr *importer.RowValidationError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowValidationError, got %T: %v", err, err)
	}
	if rowErr.Field != field {
		t.Fatalf("expected field %q, got %q", field, rowErr.Field)
	}
	if rowErr.Message != message {
		t.Fatalf("expected message %q, got %q", message, rowErr.Message)
	}
}

func TestValidateRowEmail(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{ID: "f1", Label: "Email", Type: domain.FieldEmail, Required: true},
	})

	values, err := v.ValidateRow(domain.RawRow{"email": "jane@example.com"})
	if err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	if values["f1"] != "jane@example.com" {
		t.Fatalf("expected email kept verbatim, got %q", values["f1"])
	}

	_, err = v.ValidateRow(domain.RawRow{"email": "not-an-email"})
	assertRowError(t, err, "Email", "Invalid email format in 'Email'")
}

func TestValidateRowRequiredEmpty(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{ID: "f1", Label: "Full Name", Type: domain.FieldText, Required: true},
	})

	_, err := v.ValidateRow(domain.RawRow{"full_name": "   "})
	assertRowError(t, err, "Full Name", "Required field 'Full Name' is empty")
}

func TestValidateRowNumberBounds(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{
			ID: "f1", Label: "Age", Type: domain.FieldNumber, Required: true,
			Rules: domain.ValidationRules{Min: floatPtr(18), Max: floatPtr(99)},
		},
	})

	values, err := v.ValidateRow(domain.RawRow{"age": "42"})
	if err != nil {
		t.Fatalf("in-range number rejected: %v", err)
	}
	if values["f1"] != "42" {
		t.Fatalf("expected canonical 42, got %q", values["f1"])
	}

	_, err = v.ValidateRow(domain.RawRow{"age": "17"})
	assertRowError(t, err, "Age", "'Age' must be at least 18")

	_, err = v.ValidateRow(domain.RawRow{"age": "120"})
	assertRowError(t, err, "Age", "'Age' must be at most 99")

	_, err = v.ValidateRow(domain.RawRow{"age": "abc"})
	assertRowError(t, err, "Age", "'Age' must be a number, got \"abc\"")
}

func TestValidateRowDateCanonicalized(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{ID: "f1", Label: "Start Date", Type: domain.FieldDate, Required: true},
	})

	for _, raw := range []string{"2024-03-15", "2024/03/15", "15/03/2024", "15-03-2024"} {
		values, err := v.ValidateRow(domain.RawRow{"start_date": raw})
		if err != nil {
			t.Fatalf("date %q rejected: %v", raw, err)
		}
		if values["f1"] != "2024-03-15" {
			t.Fatalf("date %q: expected 2024-03-15, got %q", raw, values["f1"])
		}
	}

	_, err := v.ValidateRow(domain.RawRow{"start_date": "March 15th"})
	assertRowError(t, err, "Start Date", "'Start Date' is not a valid date: \"March 15th\"")
}

func TestValidateRowDropdownMembership(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{
			ID: "f1", Label: "Department", Type: domain.FieldDropdown, Required: true,
			Options: []string{"Engineering", "Sales", "HR"},
		},
	})

	if _, err := v.ValidateRow(domain.RawRow{"department": "Sales"}); err != nil {
		t.Fatalf("known option rejected: %v", err)
	}

	_, err := v.ValidateRow(domain.RawRow{"department": "Marketing"})
	assertRowError(t, err, "Department", "'Department' must be one of: Engineering, Sales, HR")
}

func TestValidateRowCheckboxMultiValue(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{
			ID: "f1", Label: "Skills", Type: domain.FieldCheckbox,
			Options: []string{"Go", "SQL", "Redis"},
		},
	})

	values, err := v.ValidateRow(domain.RawRow{"skills": "Go, SQL"})
	if err != nil {
		t.Fatalf("valid selection rejected: %v", err)
	}
	if values["f1"] != "Go, SQL" {
		t.Fatalf("expected cleaned join, got %q", values["f1"])
	}

	_, err = v.ValidateRow(domain.RawRow{"skills": "Go, COBOL"})
	assertRowError(t, err, "Skills", "'Skills' must be one of: Go, SQL, Redis")
}

func TestValidateRowCheckboxSeparatorsOnly(t *testing.T) {
	t.Parallel()

	// A cell of only commas and whitespace selects nothing, so it must
	// behave exactly like an empty cell.
	v := mustValidator(t, []domain.FieldSchema{
		{
			ID: "f1", Label: "Skills", Type: domain.FieldCheckbox,
			Options: []string{"Go", "SQL", "Redis"},
		},
	})

	values, err := v.ValidateRow(domain.RawRow{"skills": ", ,"})
	if err != nil {
		t.Fatalf("optional empty selection rejected: %v", err)
	}
	if _, ok := values["f1"]; ok {
		t.Fatalf("empty selection should not produce a value, got %q", values["f1"])
	}

	required := mustValidator(t, []domain.FieldSchema{
		{
			ID: "f1", Label: "Skills", Type: domain.FieldCheckbox, Required: true,
			Options: []string{"Go", "SQL", "Redis"},
		},
	})

	_, err = required.ValidateRow(domain.RawRow{"skills": ", ,"})
	assertRowError(t, err, "Skills", "Required field 'Skills' is empty")
}

func TestValidateRowTextLengthAndPattern(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{
			ID: "f1", Label: "Employee ID", Type: domain.FieldText, Required: true,
			Rules: domain.ValidationRules{MinLength: intPtr(4), MaxLength: intPtr(8), Pattern: `^EMP\d+$`},
		},
	})

	if _, err := v.ValidateRow(domain.RawRow{"employee_id": "EMP1234"}); err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}

	_, err := v.ValidateRow(domain.RawRow{"employee_id": "EM1"})
	assertRowError(t, err, "Employee ID", "'Employee ID' must be at least 4 characters")

	_, err = v.ValidateRow(domain.RawRow{"employee_id": "EMP123456789"})
	assertRowError(t, err, "Employee ID", "'Employee ID' must be at most 8 characters")

	_, err = v.ValidateRow(domain.RawRow{"employee_id": "X123456"})
	assertRowError(t, err, "Employee ID", "'Employee ID' does not match the expected format")
}

func TestValidateRowShortCircuitsAtFirstFailure(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{ID: "f1", Label: "Email", Type: domain.FieldEmail, Required: true},
		{ID: "f2", Label: "Age", Type: domain.FieldNumber, Required: true},
	})

	// Both fields are bad; only the first failure is reported.
	_, err := v.ValidateRow(domain.RawRow{"email": "nope", "age": "not-a-number"})
	assertRowError(t, err, "Email", "Invalid email format in 'Email'")
}

func TestValidateRowOptionalEmptySkipped(t *testing.T) {
	t.Parallel()

	v := mustValidator(t, []domain.FieldSchema{
		{ID: "f1", Label: "Email", Type: domain.FieldEmail, Required: true},
		{ID: "f2", Label: "Notes", Type: domain.FieldTextarea},
	})

	values, err := v.ValidateRow(domain.RawRow{"email": "jane@example.com"})
	if err != nil {
		t.Fatalf("row with empty optional rejected: %v", err)
	}
	if _, ok := values["f2"]; ok {
		t.Fatal("empty optional field should not produce a value")
	}
}

func TestNewValidatorRejectsBadSchema(t *testing.T) {
	t.Parallel()

	if _, err := importer.NewValidator([]domain.FieldSchema{
		{ID: "f1", Label: "Broken", Type: "geo"},
	}); err == nil {
		t.Fatal("expected error for unknown field type")
	}

	if _, err := importer.NewValidator([]domain.FieldSchema{
		{ID: "f1", Label: "Broken", Type: domain.FieldText, Rules: domain.ValidationRules{Pattern: "("}},
	}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}

	if _, err := importer.NewValidator([]domain.FieldSchema{
		{ID: "f1", Label: "Broken", Type: domain.FieldDropdown},
	}); err == nil {
		t.Fatal("expected error for dropdown without options")
	}
}
