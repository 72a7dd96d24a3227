// Package validation holds the registry's field and cross-field rules.
// Everything here is pure: callers load whatever state a rule needs.
package validation

import (
	"errors"
	"sort"
	"strings"
	"time"

	"patient-registry/models"
)

var (
	ErrDeathDateMissing         = errors.New("if the patient is deceased, enter the date of death")
	ErrDeathDateWithoutFlag     = errors.New(`a date of death requires the "deceased" mark`)
	ErrDeathBeforeAdmission     = errors.New("date of death cannot be earlier than the admission date")
	ErrDeathAfterDischarge      = errors.New("date of death cannot be later than the discharge date")
	ErrDischargeBeforeAdmission = errors.New("discharge date cannot be earlier than the admission date")
)

// Messages shown when a unique field is already held by another record.
const (
	UsernameTaken      = "This username is already in use."
	HistoryNumberTaken = "This history number is already in use."
)

// FieldErrors maps a form field name to the message shown next to it.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f FieldErrors) Has(field string) bool {
	_, ok := f[field]
	return ok
}

func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Error joins the messages in field order so FieldErrors can travel as an error.
func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+f[field])
	}
	return strings.Join(parts, "; ")
}

// IsUnique reports whether value is free among current, ignoring the
// record identified by excluding (the record being edited, 0 when creating).
func IsUnique(value string, current map[uint]string, excluding uint) bool {
	for id, held := range current {
		if id == excluding {
			continue
		}
		if held == value {
			return false
		}
	}
	return true
}

// CheckDeathDate enforces that death is set exactly when isDeceased is, and
// that it falls within [admission, discharge]. A nil discharge leaves the
// window open-ended.
func CheckDeathDate(isDeceased bool, death *time.Time, admission time.Time, discharge *time.Time) error {
	switch {
	case isDeceased && death == nil:
		return ErrDeathDateMissing
	case !isDeceased && death != nil:
		return ErrDeathDateWithoutFlag
	case death == nil:
		return nil
	}
	if death.Before(admission) {
		return ErrDeathBeforeAdmission
	}
	if discharge != nil && death.After(*discharge) {
		return ErrDeathAfterDischarge
	}
	return nil
}

// CheckDischargeDate rejects a discharge that precedes the admission.
func CheckDischargeDate(admission time.Time, discharge *time.Time) error {
	if discharge != nil && discharge.Before(admission) {
		return ErrDischargeBeforeAdmission
	}
	return nil
}

// Patient runs the cross-field date rules over p.
func Patient(p *models.Patient) FieldErrors {
	errs := FieldErrors{}
	if err := CheckDischargeDate(p.AdmissionDate, p.DischargeDate); err != nil {
		errs.Add("discharge_date", capitalize(err.Error()))
	}
	if err := CheckDeathDate(p.IsDeceased, p.DeathDate, p.AdmissionDate, p.DischargeDate); err != nil {
		errs.Add("death_date", capitalize(err.Error()))
	}
	return errs
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
