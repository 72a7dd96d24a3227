// patients.go - Patient list, add, edit and delete pages

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"patient-registry/auth"
	"patient-registry/events"
	"patient-registry/forms"
	"patient-registry/middleware"
	"patient-registry/models"
	"patient-registry/store"
	"patient-registry/validation"
)

// ListPatients shows the current month's admissions, narrowed by the
// search, department, doctor and status query parameters.
func (h *Handler) ListPatients(c *gin.Context) {
	// STEP 1: Build the filter from the query, scoped to this month
	now := h.Now()
	filter := store.PatientFilter{
		Month:      now.Month(), // Current calendar month
		Year:       now.Year(),
		Search:     strings.TrimSpace(c.Query("search")),
		Department: strings.TrimSpace(c.Query("department")),
		Doctor:     strings.TrimSpace(c.Query("doctor")),
	}
	switch status := c.Query("status"); status { // Unknown values are ignored
	case store.StatusAlive, store.StatusDeceased:
		filter.Status = status
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1 // Garbage page numbers show the first page
	}

	// STEP 2: Load the page and the values for the filter dropdowns
	ctx := c.Request.Context()
	result, err := h.Store.Patients.List(ctx, filter, page)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	departments, doctors, err := h.Store.Patients.Distinct(ctx)
	if err != nil {
		h.fail(c, err, "/")
		return
	}

	h.render(c, http.StatusOK, "patients", gin.H{
		"month":       int(filter.Month),
		"year":        filter.Year,
		"patients":    result,
		"departments": departments,
		"doctors":     doctors,
		"filters": gin.H{
			"search":     filter.Search,
			"department": filter.Department,
			"doctor":     filter.Doctor,
			"status":     filter.Status,
		},
	})
}

func (h *Handler) AddPatientPage(c *gin.Context) {
	form := forms.PatientForm{AdmissionDate: h.Now().Format(models.DateLayout)}
	h.render(c, http.StatusOK, "patient_form", gin.H{"title": "Add patient", "form": form})
}

func (h *Handler) AddPatient(c *gin.Context) {
	// STEP 1: Bind the form and run the field and date rules
	var form forms.PatientForm
	errs := forms.Bind(c, &form) // Required fields, lengths, date formats
	p := &models.Patient{}
	if errs.Empty() {
		errs = form.Apply(p) // Death/discharge consistency
	}
	if !errs.Empty() {
		h.invalid(c, "patient_form", errs, form, gin.H{"title": "Add patient"}) // 422, input kept
		return
	}

	// STEP 2: Save, with the history number checked inside the transaction
	user := middleware.CurrentUser(c)
	p.CreatedBy = &user.ID // Creator reference
	if err := h.Store.Patients.Create(c.Request.Context(), p); err != nil {
		h.savePatientFailed(c, err, errs, form, "Add patient", "/add")
		return
	}

	// STEP 3: Announce the change and go back to the list
	events.Emit(c.Request.Context(), h.Events, h.Log, events.PatientEvent(events.PatientCreated, p, user.ID))
	h.redirect(c, "/", auth.FlashSuccess, "Patient added successfully.")
}

func (h *Handler) EditPatientPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	p, err := h.Store.Patients.Get(c.Request.Context(), id)
	if !h.lookup(c, err, "/") {
		return
	}
	h.render(c, http.StatusOK, "patient_form", gin.H{
		"title":   "Edit patient",
		"form":    forms.PatientFormFrom(p),
		"patient": p,
	})
}

func (h *Handler) EditPatient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	p, err := h.Store.Patients.Get(c.Request.Context(), id)
	if !h.lookup(c, err, "/") {
		return
	}

	var form forms.PatientForm
	errs := forms.Bind(c, &form)
	if errs.Empty() {
		errs = form.Apply(p) // Overwrites the loaded record in memory only
	}
	if !errs.Empty() {
		h.invalid(c, "patient_form", errs, form, gin.H{"title": "Edit patient", "patient_id": id})
		return
	}

	back := fmt.Sprintf("/edit/%d", id)                                      // Where a failed save returns to
	if err := h.Store.Patients.Update(c.Request.Context(), p); err != nil { // Own history number is not a collision
		h.savePatientFailed(c, err, errs, form, "Edit patient", back)
		return
	}

	user := middleware.CurrentUser(c)
	events.Emit(c.Request.Context(), h.Events, h.Log, events.PatientEvent(events.PatientUpdated, p, user.ID))
	h.redirect(c, "/", auth.FlashSuccess, "Patient record updated.")
}

// DeletePatient removes a record for good. Admin only.
func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	ctx := c.Request.Context()
	p, err := h.Store.Patients.Get(ctx, id)
	if !h.lookup(c, err, "/") {
		return
	}
	if err := h.Store.Patients.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) { // Deleted concurrently
			h.notFound(c)
			return
		}
		h.fail(c, err, "/")
		return
	}

	user := middleware.CurrentUser(c)
	events.Emit(ctx, h.Events, h.Log, events.PatientEvent(events.PatientDeleted, p, user.ID))
	h.redirect(c, "/", auth.FlashSuccess, "Patient deleted.")
}

// savePatientFailed turns a history number collision into a field error
// and anything else into a generic failure.
func (h *Handler) savePatientFailed(c *gin.Context, err error, errs validation.FieldErrors, form forms.PatientForm, title, back string) {
	switch {
	case errors.Is(err, store.ErrDuplicateHistoryNumber):
		errs.Add("history_number", validation.HistoryNumberTaken)
		h.invalid(c, "patient_form", errs, form, gin.H{"title": title})
	case errors.Is(err, store.ErrNotFound):
		h.notFound(c)
	default:
		h.fail(c, err, back)
	}
}
