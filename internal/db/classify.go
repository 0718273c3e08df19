package db

import (
	"database/sql"
	"errors"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Kind is the typed outcome of a store operation. All driver-level
// failure classification lives here; callers switch on kinds instead of
// inspecting driver error strings.
type Kind int

const (
	KindOK Kind = iota
	KindNotFound
	KindClosed
	KindQuota
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindClosed:
		return "closed"
	case KindQuota:
		return "quota"
	default:
		return "unknown"
	}
}

// Classify maps a store error to its Kind. KindNotFound covers missing
// tables, the schema-drift case for datasets imported from application
// versions that predate lending.
func Classify(err error) Kind {
	if err == nil {
		return KindOK
	}
	if errors.Is(err, sql.ErrConnDone) {
		return KindClosed
	}

	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_FULL:
			return KindQuota
		case sqlite3.SQLITE_MISUSE:
			return KindClosed
		case sqlite3.SQLITE_ERROR:
			if strings.Contains(serr.Error(), "no such table") {
				return KindNotFound
			}
		}
		return KindUnknown
	}

	// database/sql reports a closed handle with an unexported error.
	if strings.Contains(err.Error(), "database is closed") {
		return KindClosed
	}
	return KindUnknown
}
