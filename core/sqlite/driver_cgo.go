//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
// This is used when the cgo_sqlite build tag is set.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
package sqlite

import (
	"net/url"

	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver
)

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3"
)

// pragmaParams encodes connection pragmas as mattn/go-sqlite3 DSN
// parameters.
func pragmaParams(p Pragmas) url.Values {
	v := url.Values{}
	v.Set("_busy_timeout", itoa(p.BusyTimeoutMS))
	if p.ForeignKeys {
		v.Set("_foreign_keys", "1")
	}
	if p.JournalMode != "" {
		v.Set("_journal_mode", p.JournalMode)
	}
	return v
}
