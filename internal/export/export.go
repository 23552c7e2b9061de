// Package export writes a grade table as a downloadable file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/gradebook/internal/core"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Grades"

// Format is a supported export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Filename returns grades_export_YYYYMMDD_HHMMSS.<ext>.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("grades_export_%s.%s", now.Format("20060102_150405"), f)
}

// columns returns the table's columns, or the required set for a bare table.
func columns(t *core.Table) []string {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	return core.RequiredColumns
}

// WriteCSV writes t with a header row. Dates are YYYY-MM-DD and absent
// optional values are empty cells.
func WriteCSV(w io.Writer, t *core.Table) error {
	cols := columns(t)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range t.Records {
		if err := cw.Write(core.RecordFields(r, cols)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes t to a single "Grades" sheet with a bold header.
// Student IDs and grades are numeric cells.
func WriteXLSX(w io.Writer, t *core.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	cols := columns(t)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCell, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCell, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range t.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := xlsxRow(r, cols)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

func xlsxRow(r core.GradeRecord, cols []string) []any {
	fields := core.RecordFields(r, cols)
	row := make([]any, len(cols))
	for i, c := range cols {
		switch c {
		case core.ColStudentID:
			row[i] = r.StudentID
		case core.ColGrade:
			row[i] = r.Grade
		default:
			row[i] = fields[i]
		}
	}
	return row
}
