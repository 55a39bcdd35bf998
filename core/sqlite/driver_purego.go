//go:build !cgo_sqlite

package sqlite

import (
	"net/url"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

// pragmaParams encodes connection pragmas the way modernc.org/sqlite
// expects them: one _pragma=name(value) parameter per pragma.
func pragmaParams(p Pragmas) url.Values {
	v := url.Values{}
	v.Add("_pragma", "busy_timeout("+itoa(p.BusyTimeoutMS)+")")
	if p.ForeignKeys {
		v.Add("_pragma", "foreign_keys(1)")
	}
	if p.JournalMode != "" {
		v.Add("_pragma", "journal_mode("+p.JournalMode+")")
	}
	return v
}
