package decode

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/hrpanel/bulk-import/internal/domain/importing"
)

type csvDecoder struct {
	reader  *csv.Reader
	headers []string
	nextRow int
	done    bool
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(normalizeReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func normalizeHeaders(header []string) []string {
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = importing.NormalizeLabel(normalizeCell(h))
	}
	return headers
}

func newCSVDecoder(r io.Reader) (*csvDecoder, error) {
	reader := newCSVReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header row: %v", ErrMalformed, err)
	}

	return &csvDecoder{reader: reader, headers: normalizeHeaders(header), nextRow: 1}, nil
}

func countCSVRows(r io.Reader) (int64, error) {
	reader := newCSVReader(r)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: missing header row: %v", ErrMalformed, err)
	}
	headers := normalizeHeaders(header)

	var count int64
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if rowHasData(headers, record) {
			count++
		}
	}
}

func (d *csvDecoder) Headers() []string {
	return d.headers
}

func (d *csvDecoder) Next(limit int) ([]Row, error) {
	if d.done {
		return nil, io.EOF
	}

	rows := make([]Row, 0, limit)
	for len(rows) < limit {
		record, err := d.reader.Read()
		if errors.Is(err, io.EOF) {
			d.done = true
			return rows, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, d.nextRow, err)
		}

		if row, ok := rowFromCells(d.headers, record, d.nextRow); ok {
			rows = append(rows, row)
		}
		d.nextRow++
	}
	return rows, nil
}

func (d *csvDecoder) Close() error {
	d.done = true
	return nil
}
