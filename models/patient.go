// patient.go - Defines the Patient model and date helpers

package models

import "time"

const (
	DateLayout    = "2006-01-02" // Wire format for date inputs
	DisplayLayout = "02.01.2006" // Human-readable day.month.year
)

type Patient struct { // Patient is a single admission record in the registry
	ID            uint       `gorm:"primaryKey" json:"id"`
	AdmissionDate time.Time  `gorm:"not null;index" json:"admission_date"`
	DischargeDate *time.Time `json:"discharge_date"`
	FullName      string     `gorm:"size:200;not null" json:"full_name"`
	Department    string     `gorm:"size:100;not null;index" json:"department"`
	Doctor        string     `gorm:"size:200;not null" json:"doctor"`
	HistoryNumber string     `gorm:"size:50;uniqueIndex;not null" json:"history_number"`
	Comment       string     `gorm:"type:text" json:"comment"`
	IsDeceased    bool       `gorm:"not null;default:false" json:"is_deceased"`
	DeathDate     *time.Time `json:"death_date"`

	CreatedBy *uint `gorm:"index" json:"created_by"`                                                  // Creator's user ID, NULL once the account is deleted
	Creator   *User `gorm:"foreignKey:CreatedBy;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"` // Foreign key constraint

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // Refreshed by gorm on every update
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders an optional date with layout, empty when absent.
func FormatDate(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

// MonthRange returns the half-open range [first day of month, first day of next month).
func MonthRange(month time.Month, year int) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// Status is the human-readable alive/deceased label.
func (p *Patient) Status() string {
	if p.IsDeceased {
		return "Deceased"
	}
	return "Alive"
}
