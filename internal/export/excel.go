package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Writer builds an xlsx workbook sheet by sheet.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

// NewWriter creates a new Excel writer.
func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddSheet adds a new sheet with the given name and makes it current.
func (w *Writer) AddSheet(name string) error {
	// Excel limits sheet names to 31 chars
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *Writer) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.setRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil && len(columns) > 0 {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *Writer) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	if err := w.setRow(row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *Writer) setRow(row []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	return w.file.SetSheetRow(w.currentSheet, cell, &row)
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}
