package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"patient-registry/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "store.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Patient{}))
	return New(db)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func patient(number, dept string, admitted time.Time, deceased bool) *models.Patient {
	p := &models.Patient{
		AdmissionDate: admitted,
		FullName:      "Patient " + number,
		Department:    dept,
		Doctor:        "Dr. " + dept,
		HistoryNumber: number,
		IsDeceased:    deceased,
	}
	if deceased {
		d := admitted
		p.DeathDate = &d
	}
	return p
}

func TestPatientFilterIsConjunction(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	oct := day(2026, 10, 10)
	require.NoError(t, st.Patients.Create(ctx, patient("A", "Cardio", oct, false)))
	require.NoError(t, st.Patients.Create(ctx, patient("B", "Cardio", oct, true)))
	require.NoError(t, st.Patients.Create(ctx, patient("C", "Neuro", oct, false)))

	page, err := st.Patients.List(ctx, PatientFilter{Month: time.October, Year: 2026, Department: "Cardio", Status: StatusAlive}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "A", page.Items[0].HistoryNumber)

	page, err = st.Patients.List(ctx, PatientFilter{Month: time.October, Year: 2026, Status: StatusDeceased}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B", page.Items[0].HistoryNumber)
}

func TestPatientFilterMonthSearchAndOrder(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	require.NoError(t, st.Patients.Create(ctx, patient("H-1", "Cardio", day(2026, 10, 1), false)))
	require.NoError(t, st.Patients.Create(ctx, patient("H-2", "cardiology", day(2026, 10, 31), false)))
	require.NoError(t, st.Patients.Create(ctx, patient("H-3", "Cardio", day(2026, 11, 1), false)))
	require.NoError(t, st.Patients.Create(ctx, patient("H-4", "Cardio", day(2026, 9, 30), false)))
	require.NoError(t, st.Patients.Create(ctx, patient("X_5", "Cardio", day(2026, 10, 15), false)))

	page, err := st.Patients.List(ctx, PatientFilter{Month: time.October, Year: 2026}, 1)
	require.NoError(t, err)
	var got []string
	for _, p := range page.Items {
		got = append(got, p.HistoryNumber)
	}
	assert.Equal(t, []string{"H-2", "X_5", "H-1"}, got, "month scoped, newest admission first")

	page, err = st.Patients.List(ctx, PatientFilter{Month: time.October, Year: 2026, Department: "CARDIO", Search: "h-"}, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2, "case-insensitive substring on department and history number")

	page, err = st.Patients.List(ctx, PatientFilter{Month: time.October, Year: 2026, Search: "_"}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "LIKE wildcards are literal")
	assert.Equal(t, "X_5", page.Items[0].HistoryNumber)
}

func TestPatientListPaginates(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	for i := 0; i < PageSize+3; i++ {
		require.NoError(t, st.Patients.Create(ctx, patient(fmt.Sprintf("N-%03d", i), "Ward", day(2026, 10, 1+i%28), false)))
	}
	f := PatientFilter{Month: time.October, Year: 2026}

	first, err := st.Patients.List(ctx, f, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Len(t, first.Items, PageSize)
	assert.Equal(t, int64(PageSize+3), first.Total)
	assert.Equal(t, 2, first.Pages)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	second, err := st.Patients.List(ctx, f, 2)
	require.NoError(t, err)
	assert.Len(t, second.Items, 3)
	assert.False(t, second.HasNext)

	beyond, err := st.Patients.List(ctx, f, 9)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestHistoryNumberUniqueness(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	a := patient("H-1", "Cardio", day(2026, 10, 1), false)
	b := patient("H-2", "Cardio", day(2026, 10, 2), false)
	require.NoError(t, st.Patients.Create(ctx, a))
	require.NoError(t, st.Patients.Create(ctx, b))

	assert.ErrorIs(t, st.Patients.Create(ctx, patient("H-1", "Neuro", day(2026, 10, 3), false)), ErrDuplicateHistoryNumber)

	a.FullName = "Renamed"
	require.NoError(t, st.Patients.Update(ctx, a), "own history number is not a collision")

	b.HistoryNumber = "H-1"
	assert.ErrorIs(t, st.Patients.Update(ctx, b), ErrDuplicateHistoryNumber)

	stored, err := st.Patients.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "H-2", stored.HistoryNumber, "rejected update leaves the row untouched")
}

func TestPatientUpdateClearsOptionalFields(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	p := patient("H-1", "Cardio", day(2026, 10, 1), true)
	require.NoError(t, st.Patients.Create(ctx, p))
	before := p.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	p.IsDeceased = false
	p.DeathDate = nil
	require.NoError(t, st.Patients.Update(ctx, p))

	stored, err := st.Patients.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDeceased)
	assert.Nil(t, stored.DeathDate)
	assert.True(t, stored.UpdatedAt.After(before))
}

func TestPatientNotFound(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	_, err := st.Patients.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.Patients.Delete(ctx, 99), ErrNotFound)
	assert.ErrorIs(t, st.Patients.Update(ctx, &models.Patient{ID: 99, HistoryNumber: "Z"}), ErrNotFound)
}

func TestDistinct(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	require.NoError(t, st.Patients.Create(ctx, patient("1", "Neuro", day(2026, 1, 1), false)))
	require.NoError(t, st.Patients.Create(ctx, patient("2", "Cardio", day(2026, 2, 1), false)))
	require.NoError(t, st.Patients.Create(ctx, patient("3", "Neuro", day(2026, 3, 1), false)))

	departments, doctors, err := st.Patients.Distinct(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardio", "Neuro"}, departments)
	assert.Equal(t, []string{"Dr. Cardio", "Dr. Neuro"}, doctors)
}

func TestUsers(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	admin := &models.User{Username: "admin", PasswordHash: "h", Role: models.RoleAdmin}
	nurse := &models.User{Username: "nurse", PasswordHash: "h", Role: models.RoleUser}
	require.NoError(t, st.Users.Create(ctx, admin))
	require.NoError(t, st.Users.Create(ctx, nurse))

	assert.ErrorIs(t, st.Users.Create(ctx, &models.User{Username: "nurse", PasswordHash: "h", Role: models.RoleUser}), ErrDuplicateUsername)

	nurse.Role = models.RoleAdmin
	require.NoError(t, st.Users.Update(ctx, nurse), "keeping one's own username is fine")
	nurse.Username = "admin"
	assert.ErrorIs(t, st.Users.Update(ctx, nurse), ErrDuplicateUsername)

	toggled, err := st.Users.ToggleRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, toggled.Role)

	count, err := st.Users.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	users, err := st.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, nurse.ID, users[0].ID, "newest first")
}

func TestDeleteUserDetachesPatients(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	nurse := &models.User{Username: "nurse", PasswordHash: "h", Role: models.RoleUser}
	require.NoError(t, st.Users.Create(ctx, nurse))
	p := patient("H-1", "Cardio", day(2026, 10, 1), false)
	p.CreatedBy = &nurse.ID
	require.NoError(t, st.Patients.Create(ctx, p))

	require.NoError(t, st.Users.Delete(ctx, nurse.ID))
	assert.ErrorIs(t, st.Users.Delete(ctx, nurse.ID), ErrNotFound)

	stored, err := st.Patients.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CreatedBy)
	assert.Equal(t, "H-1", stored.HistoryNumber)
}

func TestPatientFilterMatchesCyrillic(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	p := &models.Patient{
		AdmissionDate: day(2026, 10, 4),
		FullName:      "Іван Петренко",
		Department:    "Кардіологія",
		Doctor:        "Шевченко",
		HistoryNumber: "Х-17",
	}
	require.NoError(t, st.Patients.Create(ctx, p))
	require.NoError(t, st.Patients.Create(ctx, patient("H-1", "Neuro", day(2026, 10, 5), false)))

	departments, doctors, err := st.Patients.Distinct(ctx)
	require.NoError(t, err)
	require.Contains(t, departments, "Кардіологія")
	require.Contains(t, doctors, "Шевченко")

	base := PatientFilter{Month: time.October, Year: 2026}
	for name, f := range map[string]PatientFilter{
		"search name":    {Month: base.Month, Year: base.Year, Search: "Іван"},
		"search number":  {Month: base.Month, Year: base.Year, Search: "Х-17"},
		"department":     {Month: base.Month, Year: base.Year, Department: "Кардіологія"},
		"doctor":         {Month: base.Month, Year: base.Year, Doctor: "Шевченко"},
		"all together":   {Month: base.Month, Year: base.Year, Search: "Петренко", Department: "Кардіо", Doctor: "Шевч"},
		"surrounding ws": {Month: base.Month, Year: base.Year, Department: "  Кардіологія "},
	} {
		page, err := st.Patients.List(ctx, f, 1)
		require.NoError(t, err, name)
		require.Len(t, page.Items, 1, name)
		assert.Equal(t, p.ID, page.Items[0].ID, name)
	}

	rows, err := st.Patients.ForExport(ctx, PatientFilter{Month: time.October, Year: 2026, Department: "Кардіологія"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestPatientListFarPastTheEnd(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	require.NoError(t, st.Patients.Create(ctx, patient("H-1", "Cardio", day(2026, 10, 1), false)))

	for _, n := range []int{2, 200000000000000000, math.MaxInt} {
		page, err := st.Patients.List(ctx, PatientFilter{Month: time.October, Year: 2026}, n)
		require.NoError(t, err)
		assert.Empty(t, page.Items, "page %d", n)
		assert.Equal(t, n, page.Page)
		assert.Equal(t, int64(1), page.Total)
		assert.False(t, page.HasNext)
	}
}
