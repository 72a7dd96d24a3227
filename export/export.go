// Package export renders patient lists as .xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"patient-registry/models"
)

const (
	SheetName      = "Patients"
	ContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MaxColumnWidth = 50
)

// Headers are the column titles, in column order.
var Headers = []string{
	"Admission date",
	"Discharge date",
	"Full name",
	"Department",
	"Doctor",
	"History No.",
	"Status",
	"Death date",
	"Comment",
}

// Filename names the download after the exported month, e.g.
// patients_October_2026.xlsx.
func Filename(month time.Month, year int) string {
	return fmt.Sprintf("patients_%s_%d.xlsx", month, year)
}

// Row renders one patient as cell text with day.month.year dates.
func Row(p *models.Patient) []string {
	return []string{
		p.AdmissionDate.Format(models.DisplayLayout),
		models.FormatDate(p.DischargeDate, models.DisplayLayout),
		p.FullName,
		p.Department,
		p.Doctor,
		p.HistoryNumber,
		p.Status(),
		models.FormatDate(p.DeathDate, models.DisplayLayout),
		p.Comment,
	}
}

// Workbook writes a header row plus one row per patient and sizes each
// column to its longest cell, capped at MaxColumnWidth.
func Workbook(patients []models.Patient) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	widths := make([]int, len(Headers))
	writeRow := func(n int, cells []string) error {
		values := make([]interface{}, len(cells))
		for i, v := range cells {
			values[i] = v
			if l := utf8.RuneCountInString(v); l > widths[i] {
				widths[i] = l
			}
		}
		start, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		return f.SetSheetRow(SheetName, start, &values)
	}

	if err := writeRow(1, Headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := range patients {
		if err := writeRow(i+2, Row(&patients[i])); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, float64(min(w+2, MaxColumnWidth))); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}
