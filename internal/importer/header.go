// Package importer holds the pure validation core of the pipeline: header
// reconciliation against the template schema and per-row field validation.
package importer

import (
	"fmt"
	"strings"

	"github.com/hrpanel/bulk-import/internal/domain/importing"
)

// HeaderMismatchError is fatal for the whole import. Missing lists required
// field labels absent from the header row; Extra lists header columns no
// field claims. Either set being non-empty makes the upload invalid —
// unexpected columns usually mean a misconfigured template.
type HeaderMismatchError struct {
	Missing []string
	Extra   []string
}

func (e *HeaderMismatchError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Extra, ", "))
	}
	return "header mismatch: " + strings.Join(parts, "; ")
}

// ReconcileHeader compares the normalized header row against the template
// fields before any row is processed. Pure; no side effects.
func ReconcileHeader(headers []string, fields []importing.FieldSchema) error {
	known := make(map[string]bool, len(fields))
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h != "" {
			present[h] = true
		}
	}

	var missing []string
	for _, f := range fields {
		normalized := importing.NormalizeLabel(f.Label)
		known[normalized] = true
		if f.Required && !present[normalized] {
			missing = append(missing, f.Label)
		}
	}

	var extra []string
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h == "" || known[h] || seen[h] {
			continue
		}
		seen[h] = true
		extra = append(extra, h)
	}

	if len(missing) > 0 || len(extra) > 0 {
		return &HeaderMismatchError{Missing: missing, Extra: extra}
	}
	return nil
}

// RowValidationError rejects one row with a single message naming the field
// label and the reason. The rest of the row is not inspected; a bad row is
// discarded wholesale either way.
type RowValidationError struct {
	Field   string
	Message string
}

func (e *RowValidationError) Error() string {
	return e.Message
}

func rowErrorf(field string, format string, args ...any) *RowValidationError {
	return &RowValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
