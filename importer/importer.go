// Package importer bulk-loads patients from a spreadsheet. It is a one-shot
// administrative tool run from the command line, not part of the web app.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"patient-registry/models"
	"patient-registry/store"
	"patient-registry/validation"
)

// Placeholder stored when a row has no department or doctor.
const NotSpecified = "Not specified"

// Row outcomes.
const (
	Imported = "imported"
	Skipped  = "skipped"
	Failed   = "error"
)

type column int

const (
	colFullName column = iota
	colHistoryNumber
	colAdmission
	colDischarge
	colDepartment
	colDoctor
	colComment
	colDeathDate
)

// headers lists the accepted titles per column: the export's own headers
// first, then the legacy registry spreadsheet titles. Matching ignores case.
var headers = map[column][]string{
	colFullName:      {"full name", "піб"},
	colHistoryNumber: {"history no.", "history number", "№ історії"},
	colAdmission:     {"admission date", "дата поступлення"},
	colDischarge:     {"discharge date", "дата виписки", "дата"},
	colDepartment:    {"department", "відділення"},
	colDoctor:        {"doctor", "лікар"},
	colComment:       {"comment", "коментар"},
	colDeathDate:     {"death date", "дата смерті"},
}

var dateLayouts = []string{models.DisplayLayout, models.DateLayout, "01-02-06", "1/2/06", "1/2/2006"}

type RowResult struct {
	Row     int    `json:"row"` // spreadsheet row number, header is row 1
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

type Tally struct {
	Total   int         `json:"total"`
	Success int         `json:"success"`
	Skipped int         `json:"skipped"`
	Errors  int         `json:"errors"`
	Rows    []RowResult `json:"rows"`
}

func (t *Tally) add(r RowResult) {
	switch r.Outcome {
	case Imported:
		t.Success++
	case Skipped:
		t.Skipped++
	default:
		t.Errors++
	}
	t.Rows = append(t.Rows, r)
}

type Importer struct {
	db      *gorm.DB
	creator *models.User
	logger  zerolog.Logger
	now     func() time.Time
}

// New returns an importer that records creator as the author of every row.
func New(db *gorm.DB, creator *models.User, logger zerolog.Logger) *Importer {
	return &Importer{db: db, creator: creator, logger: logger, now: time.Now}
}

// ImportFile opens path and imports sheet (the first sheet when empty).
func (im *Importer) ImportFile(ctx context.Context, path, sheet string) (*Tally, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return im.Import(ctx, f, sheet)
}

// Import reads every data row of sheet. Rows missing a name or history
// number, or whose history number is already taken, are skipped. All
// imported rows are committed together; a store failure rolls them all back.
func (im *Importer) Import(ctx context.Context, f *excelize.File, sheet string) (*Tally, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	cols, err := mapHeaders(rows[0])
	if err != nil {
		return nil, err
	}

	tally := &Tally{Total: len(rows) - 1}
	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patients := store.NewPatients(tx)
		seen := make(map[string]bool)
		for i, row := range rows[1:] {
			res, err := im.importRow(ctx, patients, seen, cols, row)
			if err != nil {
				return err
			}
			res.Row = i + 2
			im.logRow(res)
			tally.add(res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import aborted, nothing saved: %w", err)
	}
	return tally, nil
}

// importRow returns an error only for store failures that must abort the run.
func (im *Importer) importRow(ctx context.Context, patients *store.Patients, seen map[string]bool, cols map[column]int, row []string) (RowResult, error) {
	cell := func(c column) string {
		i, ok := cols[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	name, number := cell(colFullName), cell(colHistoryNumber)
	if name == "" || number == "" {
		return RowResult{Outcome: Skipped, Message: "missing full name or history number"}, nil
	}

	exists, err := patients.HistoryNumberExists(ctx, number)
	if err != nil {
		return RowResult{}, err
	}
	if exists || seen[number] {
		return RowResult{Outcome: Skipped, Message: fmt.Sprintf("history number %s already exists", number)}, nil
	}

	p, err := im.buildPatient(cell)
	if err != nil {
		return RowResult{Outcome: Failed, Message: err.Error()}, nil
	}
	p.FullName, p.HistoryNumber = name, number

	if err := patients.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicateHistoryNumber) {
			return RowResult{Outcome: Skipped, Message: fmt.Sprintf("history number %s already exists", number)}, nil
		}
		return RowResult{Outcome: Failed, Message: err.Error()}, nil
	}
	seen[number] = true
	return RowResult{Outcome: Imported, Message: p.FullName}, nil
}

func (im *Importer) buildPatient(cell func(column) string) (*models.Patient, error) {
	discharge, err := parseDate(cell(colDischarge))
	if err != nil {
		return nil, fmt.Errorf("discharge date: %w", err)
	}
	admission, err := parseDate(cell(colAdmission))
	if err != nil {
		return nil, fmt.Errorf("admission date: %w", err)
	}
	death, err := parseDate(cell(colDeathDate))
	if err != nil {
		return nil, fmt.Errorf("death date: %w", err)
	}

	// Without an admission date the discharge date stands in, then today.
	if admission == nil {
		admission = discharge
	}
	if admission == nil {
		today := models.Day(im.now())
		admission = &today
	}

	p := &models.Patient{
		AdmissionDate: *admission,
		DischargeDate: discharge,
		Department:    orDefault(cell(colDepartment)),
		Doctor:        orDefault(cell(colDoctor)),
		Comment:       cell(colComment),
		IsDeceased:    death != nil,
		DeathDate:     death,
	}
	if im.creator != nil {
		id := im.creator.ID
		p.CreatedBy = &id
	}
	if errs := validation.Patient(p); !errs.Empty() {
		return nil, errs
	}
	return p, nil
}

func (im *Importer) logRow(r RowResult) {
	evt := im.logger.Info()
	switch r.Outcome {
	case Skipped:
		evt = im.logger.Warn()
	case Failed:
		evt = im.logger.Error()
	}
	evt.Int("row", r.Row).Str("outcome", r.Outcome).Msg(r.Message)
}

func mapHeaders(header []string) (map[column]int, error) {
	cols := make(map[column]int)
	for i, title := range header {
		title = strings.ToLower(strings.TrimSpace(title))
		for c, names := range headers {
			if _, taken := cols[c]; taken {
				continue
			}
			for _, name := range names {
				if title == name {
					cols[c] = i
				}
			}
		}
	}
	for _, required := range []column{colFullName, colHistoryNumber} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("header row must contain %q and %q columns", headers[colFullName][0], headers[colHistoryNumber][0])
		}
	}
	return cols, nil
}

// parseDate accepts spreadsheet serial dates and the usual text layouts.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil, err
		}
		d := models.Day(t)
		return &d, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", s)
}

func orDefault(s string) string {
	if s == "" {
		return NotSpecified
	}
	return s
}
