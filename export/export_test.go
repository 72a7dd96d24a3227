package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"patient-registry/models"
)

func TestFilename(t *testing.T) {
	assert.Equal(t, "patients_October_2026.xlsx", Filename(time.October, 2026))
}

func TestWorkbook(t *testing.T) {
	discharge := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	patients := []models.Patient{
		{
			AdmissionDate: time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
			DischargeDate: &discharge,
			FullName:      "Olena Kovalenko",
			Department:    "Cardiology",
			Doctor:        "Dr. Bondar",
			HistoryNumber: "H-1",
		},
		{
			AdmissionDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			FullName:      "Petro Melnyk",
			Department:    "Neurology",
			Doctor:        "Dr. Tkachenko",
			HistoryNumber: "H-2",
			IsDeceased:    true,
			DeathDate:     &discharge,
			Comment:       strings.Repeat("x", 120),
		},
	}

	buf, err := Workbook(patients)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per patient")
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, []string{"03.10.2026", "12.10.2026", "Olena Kovalenko", "Cardiology", "Dr. Bondar", "H-1", "Alive"}, rows[1])
	assert.Equal(t, "Deceased", rows[2][6])
	assert.Equal(t, "12.10.2026", rows[2][7])

	width, err := f.GetColWidth(SheetName, "C")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Olena Kovalenko")+2), width)

	width, err = f.GetColWidth(SheetName, "I")
	require.NoError(t, err)
	assert.Equal(t, float64(MaxColumnWidth), width)
}
