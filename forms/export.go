package forms

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"patient-registry/store"
)

// ExportForm selects the month to export. An absent include_deceased means
// deceased patients are included.
type ExportForm struct {
	Month           int    `form:"month" json:"month" binding:"required,min=1,max=12"`
	Year            int    `form:"year" json:"year" binding:"required,min=1900,max=9999"`
	Department      string `form:"department" json:"department" binding:"max=100"`
	Doctor          string `form:"doctor" json:"doctor" binding:"max=200"`
	IncludeDeceased string `form:"include_deceased" json:"include_deceased"`
}

func (f *ExportForm) normalize() {
	f.Department = strings.TrimSpace(f.Department)
	f.Doctor = strings.TrimSpace(f.Doctor)
	f.IncludeDeceased = strings.TrimSpace(f.IncludeDeceased)
}

func (f *ExportForm) IncludesDeceased() bool {
	return f.IncludeDeceased == "" || truthy(f.IncludeDeceased)
}

// Filter converts the form into the store query it describes.
func (f *ExportForm) Filter() store.PatientFilter {
	filter := store.PatientFilter{
		Month:      time.Month(f.Month),
		Year:       f.Year,
		Department: f.Department,
		Doctor:     f.Doctor,
	}
	if !f.IncludesDeceased() {
		filter.Status = store.StatusAlive
	}
	return filter
}

// Query encodes the form as download query parameters.
func (f *ExportForm) Query() url.Values {
	q := url.Values{}
	q.Set("month", strconv.Itoa(f.Month))
	q.Set("year", strconv.Itoa(f.Year))
	if f.Department != "" {
		q.Set("department", f.Department)
	}
	if f.Doctor != "" {
		q.Set("doctor", f.Doctor)
	}
	q.Set("include_deceased", strconv.FormatBool(f.IncludesDeceased()))
	return q
}
