package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

type rowWriter interface {
	WriteRow(cells []string) error
	Flush() error
}

type csvRowWriter struct {
	w *csv.Writer
}

func newCSVRowWriter(w io.Writer) *csvRowWriter {
	return &csvRowWriter{w: csv.NewWriter(w)}
}

func (c *csvRowWriter) WriteRow(cells []string) error {
	return c.w.Write(cells)
}

func (c *csvRowWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// xlsxRowWriter drives excelize's StreamWriter so the workbook never holds
// more than one row of cell values at a time.
type xlsxRowWriter struct {
	out     io.Writer
	file    *excelize.File
	stream  *excelize.StreamWriter
	nextRow int
}

func newXLSXRowWriter(out io.Writer) (*xlsxRowWriter, error) {
	file := excelize.NewFile()
	stream, err := file.NewStreamWriter("Sheet1")
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open stream writer: %w", err)
	}
	return &xlsxRowWriter{out: out, file: file, stream: stream, nextRow: 1}, nil
}

func (x *xlsxRowWriter) WriteRow(cells []string) error {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}

	ref, err := excelize.CoordinatesToCellName(1, x.nextRow)
	if err != nil {
		return err
	}
	if err := x.stream.SetRow(ref, values); err != nil {
		return fmt.Errorf("write row %d: %w", x.nextRow, err)
	}
	x.nextRow++
	return nil
}

func (x *xlsxRowWriter) Flush() error {
	defer x.file.Close()
	if err := x.stream.Flush(); err != nil {
		return fmt.Errorf("flush workbook: %w", err)
	}
	if err := x.file.Write(x.out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
