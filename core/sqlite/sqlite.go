// Package sqlite provides a unified SQLite interface supporting both
// pure Go (modernc.org/sqlite) and CGO (mattn/go-sqlite3) implementations.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3
//
// The driver name is "sqlite" or "sqlite3" depending on the implementation.
// Use Open or OpenFile instead of sql.Open to ensure the correct driver and
// DSN dialect are used.
package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"
)

// DriverName returns the SQL driver name to use.
func DriverName() string {
	return driverName
}

// DriverType returns a string identifying the underlying implementation.
// Returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database using the appropriate driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// Pragmas are connection settings applied through the DSN, so every
// pooled connection gets them.
type Pragmas struct {
	BusyTimeoutMS int    // How long a writer waits on a locked database
	ForeignKeys   bool   // Enforce foreign key constraints
	JournalMode   string // For example "WAL"; empty keeps the default
}

// DefaultPragmas suit a small ledger written by one CLI process at a time
// and read by others.
func DefaultPragmas() Pragmas {
	return Pragmas{
		BusyTimeoutMS: 5000,
		ForeignKeys:   true,
		JournalMode:   "WAL",
	}
}

// DSN builds a file DSN for path in the dialect of the active driver.
func DSN(path string, p Pragmas) string {
	return "file:" + path + "?" + pragmaParams(p).Encode()
}

// OpenFile opens the database file at path with the given pragmas and
// verifies the connection.
func OpenFile(path string, p Pragmas) (*sql.DB, error) {
	db, err := Open(DSN(path, p))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	return db, nil
}

// OpenReadOnly opens an existing SQLite database in read-only mode and
// verifies the connection.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := Open("file:" + path + "?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s read-only: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open %s read-only: %w", path, err)
	}
	return db, nil
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
