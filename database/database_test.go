package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-registry/auth"
	"patient-registry/config"
	"patient-registry/models"
	"patient-registry/store"
)

func openTestDB(t *testing.T) *store.Store {
	t.Helper()
	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	return store.New(db)
}

func TestEnsureAdminCreatesOnce(t *testing.T) {
	st := openTestDB(t)
	ctx := context.Background()

	created, err := EnsureAdmin(ctx, st.Users, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdmin(ctx, st.Users, "admin", "other")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := st.Users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, auth.CheckPassword("admin123", admin.PasswordHash))
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "data.db?_foreign_keys=on", sqliteDSN("data.db"))
	assert.Equal(t, "file:x?cache=shared&_foreign_keys=on", sqliteDSN("file:x?cache=shared"))
}

func TestSqliteLowerFoldsCyrillic(t *testing.T) {
	st := openTestDB(t)
	ctx := context.Background()

	var folded string
	require.NoError(t, st.DB.Raw("SELECT LOWER(?)", "КАРДІОЛОГІЯ Ward").Scan(&folded).Error)
	assert.Equal(t, "кардіологія ward", folded)

	p := &models.Patient{
		AdmissionDate: time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC),
		FullName:      "Іван Петренко",
		Department:    "Кардіологія",
		Doctor:        "Шевченко",
		HistoryNumber: "Х-17",
	}
	require.NoError(t, st.Patients.Create(ctx, p))

	page, err := st.Patients.List(ctx, store.PatientFilter{
		Month:      time.October,
		Year:       2026,
		Search:     "іван",
		Department: "КАРДІО",
		Doctor:     "шевченко",
	}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, p.ID, page.Items[0].ID)
}
