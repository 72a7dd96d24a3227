package forms

import (
	"strings"
	"time"

	"patient-registry/models"
	"patient-registry/validation"
)

type PatientForm struct {
	AdmissionDate string `form:"admission_date" json:"admission_date" binding:"required,datetime=2006-01-02"`
	DischargeDate string `form:"discharge_date" json:"discharge_date" binding:"omitempty,datetime=2006-01-02"`
	FullName      string `form:"full_name" json:"full_name" binding:"required,max=200"`
	Department    string `form:"department" json:"department" binding:"required,max=100"`
	Doctor        string `form:"doctor" json:"doctor" binding:"required,max=200"`
	HistoryNumber string `form:"history_number" json:"history_number" binding:"required,max=50"`
	Comment       string `form:"comment" json:"comment"`
	IsDeceased    string `form:"is_deceased" json:"is_deceased"`
	DeathDate     string `form:"death_date" json:"death_date" binding:"omitempty,datetime=2006-01-02"`
}

func (f *PatientForm) normalize() {
	for _, s := range []*string{
		&f.AdmissionDate, &f.DischargeDate, &f.FullName, &f.Department,
		&f.Doctor, &f.HistoryNumber, &f.Comment, &f.IsDeceased, &f.DeathDate,
	} {
		*s = strings.TrimSpace(*s)
	}
}

// Deceased reports whether the deceased checkbox was ticked.
func (f *PatientForm) Deceased() bool {
	return truthy(f.IsDeceased)
}

// Apply copies the form onto p and runs the cross-field date rules. It
// must only be called on a form that passed Bind.
func (f *PatientForm) Apply(p *models.Patient) validation.FieldErrors {
	errs := validation.FieldErrors{}

	admission, err := models.ParseDate(f.AdmissionDate)
	if err != nil {
		errs.Add("admission_date", "Enter a date as YYYY-MM-DD.")
	}
	p.AdmissionDate = admission
	p.DischargeDate = optionalDate(f.DischargeDate, "discharge_date", errs)
	p.DeathDate = optionalDate(f.DeathDate, "death_date", errs)
	p.FullName = f.FullName
	p.Department = f.Department
	p.Doctor = f.Doctor
	p.HistoryNumber = f.HistoryNumber
	p.Comment = f.Comment
	p.IsDeceased = f.Deceased() // Checkbox: "on", "true", "1", ...
	if !errs.Empty() {
		return errs
	}
	return validation.Patient(p)
}

// PatientFormFrom pre-populates the edit form from a stored record.
func PatientFormFrom(p *models.Patient) PatientForm {
	f := PatientForm{
		AdmissionDate: p.AdmissionDate.Format(models.DateLayout),
		DischargeDate: models.FormatDate(p.DischargeDate, models.DateLayout),
		FullName:      p.FullName,
		Department:    p.Department,
		Doctor:        p.Doctor,
		HistoryNumber: p.HistoryNumber,
		Comment:       p.Comment,
		DeathDate:     models.FormatDate(p.DeathDate, models.DateLayout),
	}
	if p.IsDeceased {
		f.IsDeceased = "on"
	}
	return f
}

func optionalDate(s, field string, errs validation.FieldErrors) *time.Time {
	if s == "" {
		return nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		errs.Add(field, "Enter a date as YYYY-MM-DD.")
		return nil
	}
	return &d
}
