// export.go - Monthly spreadsheet export (admin only)

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"patient-registry/auth"
	"patient-registry/export"
	"patient-registry/forms"
	"patient-registry/validation"
)

const exportPath = "/export/"

// ExportPage shows the filter form, defaulting to the current month.
func (h *Handler) ExportPage(c *gin.Context) {
	now := h.Now()
	form := forms.ExportForm{Month: int(now.Month()), Year: now.Year(), IncludeDeceased: "true"}
	h.exportForm(c, http.StatusOK, form, nil)
}

// SubmitExport validates the filter form and forwards to the download.
func (h *Handler) SubmitExport(c *gin.Context) {
	var form forms.ExportForm
	if errs := forms.Bind(c, &form); !errs.Empty() {
		h.exportForm(c, http.StatusUnprocessableEntity, form, errs)
		return
	}
	c.Redirect(http.StatusSeeOther, "/export/download?"+form.Query().Encode())
}

// Download streams the matching patients as an .xlsx attachment. Every
// failure ends on the export form with a notice instead of a broken file.
func (h *Handler) Download(c *gin.Context) {
	// STEP 1: Validate the month and filters from the query string
	var form forms.ExportForm
	if errs := forms.Bind(c, &form); !errs.Empty() {
		h.Sessions.AddFlash(c, auth.FlashDanger, "Export failed: "+errs.Error())
		c.Redirect(http.StatusFound, exportPath)
		return
	}

	// STEP 2: Load every matching patient, newest admission first
	patients, err := h.Store.Patients.ForExport(c.Request.Context(), form.Filter())
	if err != nil {
		h.exportFailed(c, err)
		return
	}
	if len(patients) == 0 {
		h.Sessions.AddFlash(c, auth.FlashWarning, fmt.Sprintf("No data found for %02d.%d.", form.Month, form.Year))
		c.Redirect(http.StatusFound, exportPath)
		return
	}

	// STEP 3: Render the workbook and send it as an attachment
	buf, err := export.Workbook(patients)
	if err != nil {
		h.exportFailed(c, err)
		return
	}

	filename := export.Filename(time.Month(form.Month), form.Year)
	h.Log.Info().Int("rows", len(patients)).Str("file", filename).Msg("export generated")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (h *Handler) exportForm(c *gin.Context, status int, form forms.ExportForm, errs validation.FieldErrors) {
	departments, doctors, err := h.Store.Patients.Distinct(c.Request.Context())
	if err != nil {
		h.fail(c, err, exportPath)
		return
	}
	data := gin.H{"form": form, "departments": departments, "doctors": doctors}
	if errs != nil {
		data["errors"] = errs
	}
	h.render(c, status, "export", data)
}

func (h *Handler) exportFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	h.Log.Error().Err(err).Msg("export failed")
	h.Sessions.AddFlash(c, auth.FlashDanger, "Error while exporting data.")
	c.Redirect(http.StatusFound, exportPath)
}
