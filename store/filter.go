package store

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"patient-registry/models"
)

// PageSize is the fixed number of patients per list page.
const PageSize = 50

// Values accepted by PatientFilter.Status.
const (
	StatusAlive    = "alive"
	StatusDeceased = "deceased"
)

// PatientFilter scopes patient queries to one admission month and narrows
// them further by the optional fields. All active conditions are ANDed.
type PatientFilter struct {
	Month      time.Month
	Year       int
	Search     string // substring of full name or history number
	Department string // substring of department
	Doctor     string // substring of doctor
	Status     string // "", StatusAlive or StatusDeceased
}

// where adds the filter's conditions to q.
func (f PatientFilter) where(q *gorm.DB) *gorm.DB {
	from, to := models.MonthRange(f.Month, f.Year)
	q = q.Where("admission_date >= ? AND admission_date < ?", from, to)

	if f.Search != "" {
		pattern := likePattern(f.Search)
		q = q.Where(`(LOWER(full_name) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\' OR LOWER(history_number) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\')`, pattern, pattern) // Name or history number
	}
	if f.Department != "" {
		q = q.Where(`LOWER(department) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\'`, likePattern(f.Department))
	}
	if f.Doctor != "" {
		q = q.Where(`LOWER(doctor) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\'`, likePattern(f.Doctor))
	}
	switch f.Status {
	case StatusAlive:
		q = q.Where("is_deceased = ?", false)
	case StatusDeceased:
		q = q.Where("is_deceased = ?", true)
	}
	return q
}

// newestFirst orders by admission date, latest first, with id as tiebreak.
func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("admission_date DESC").Order("id DESC")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a "contains" pattern with LIKE wildcards in s taken
// literally. Case folding happens in SQL, on both sides of the LIKE, so the
// pattern and the column go through the same LOWER.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}
