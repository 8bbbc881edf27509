// Package decode streams uploaded spreadsheets (csv or xlsx) into bounded
// row batches. Files are attacker-sized; nothing here ever materializes the
// whole file as rows, only up to one requested batch.
package decode

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hrpanel/bulk-import/internal/domain/importing"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMalformed wraps structural decode failures. It is fatal for the
	// whole import; there are no partial results behind it.
	ErrMalformed = errors.New("malformed spreadsheet file")
)

// Row is one data row with its 1-based position among the data rows; the
// header row is not counted, so the first row under it is 1. Blank rows
// are dropped but keep their place in the numbering.
type Row struct {
	Number int
	Cells  importing.RawRow
}

// Decoder is a lazy, finite, non-restartable sequence of row batches.
type Decoder interface {
	// Headers returns the normalized column labels from row 1.
	Headers() []string
	// Next returns up to limit rows, or io.EOF once the file is drained.
	Next(limit int) ([]Row, error)
	Close() error
}

// FormatForFilename selects the decoder by extension.
func FormatForFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Open wraps r in a streaming decoder for the given format and consumes
// the header row.
func Open(r io.Reader, format Format) (Decoder, error) {
	switch format {
	case FormatCSV:
		return newCSVDecoder(r)
	case FormatXLSX:
		return newXLSXDecoder(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// RowCount is the cheap structural count used for inline-vs-background
// triage: it walks the rows without building Rows or RawRows. Blank-row
// detection must match what the decoder later drops, or the counted total
// would never be reached; that rule lives in rowHasData for both paths.
func RowCount(r io.Reader, format Format) (int64, error) {
	switch format {
	case FormatCSV:
		return countCSVRows(r)
	case FormatXLSX:
		return countXLSXRows(r)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// rowHasData reports whether a row survives decoding: at least one cell
// under a named header is non-empty after normalization.
func rowHasData(headers []string, cells []string) bool {
	for i, h := range headers {
		if h == "" || i >= len(cells) {
			continue
		}
		if normalizeCell(cells[i]) != "" {
			return true
		}
	}
	return false
}

func rowFromCells(headers []string, cells []string, number int) (Row, bool) {
	if !rowHasData(headers, cells) {
		return Row{}, false
	}
	raw := make(importing.RawRow, len(headers))
	for i, h := range headers {
		if h == "" || i >= len(cells) {
			continue
		}
		raw[h] = normalizeCell(cells[i])
	}
	return Row{Number: number, Cells: raw}, true
}
