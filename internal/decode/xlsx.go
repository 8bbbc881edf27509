package decode

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxDecoder walks the first sheet through excelize's streaming row
// iterator. GetRows would load every cell at once, so it is never used here.
type xlsxDecoder struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
	nextRow int
	done    bool
}

func newXLSXDecoder(r io.Reader) (*xlsxDecoder, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		file.Close()
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !rows.Next() {
		rows.Close()
		file.Close()
		return nil, fmt.Errorf("%w: missing header row", ErrMalformed)
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &xlsxDecoder{file: file, rows: rows, headers: normalizeHeaders(header), nextRow: 1}, nil
}

func (d *xlsxDecoder) Headers() []string {
	return d.headers
}

func (d *xlsxDecoder) Next(limit int) ([]Row, error) {
	if d.done {
		return nil, io.EOF
	}

	batch := make([]Row, 0, limit)
	for len(batch) < limit {
		if !d.rows.Next() {
			d.done = true
			if err := d.rows.Error(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return batch, io.EOF
		}

		cells, err := d.rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, d.nextRow, err)
		}

		if row, ok := rowFromCells(d.headers, cells, d.nextRow); ok {
			batch = append(batch, row)
		}
		d.nextRow++
	}
	return batch, nil
}

func countXLSXRows(r io.Reader) (int64, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, fmt.Errorf("%w: missing header row", ErrMalformed)
	}
	header, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	headers := normalizeHeaders(header)

	var count int64
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if rowHasData(headers, cells) {
			count++
		}
	}
	if err := rows.Error(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return count, nil
}

func (d *xlsxDecoder) Close() error {
	d.done = true
	if d.rows != nil {
		d.rows.Close()
	}
	return d.file.Close()
}
