// sqlite.go - SQLite driver with Unicode-aware case folding

package database

import (
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqliteDriver = "sqlite3_registry" // go-sqlite3 with lower() replaced

func init() {
	// SQLite's built-in lower() only folds ASCII; patient names, departments
	// and doctors are mostly Cyrillic.
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", unicodeLower, true) // Pure: same input, same output
		},
	})
}

// sqliteDialector opens path through the registry's SQLite driver.
func sqliteDialector(path string) gorm.Dialector {
	return sqlite.New(sqlite.Config{DriverName: sqliteDriver, DSN: sqliteDSN(path)})
}

// unicodeLower folds text values; NULLs and numbers pass through unchanged.
func unicodeLower(v interface{}) interface{} {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		return strings.ToLower(string(s))
	}
	return v
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off by default.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}
