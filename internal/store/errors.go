package store

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicate is returned by EventStore.Insert when an event with the same
// id already exists. Under concurrent syncs this is a benign race; callers
// log it and keep the previously stored event.
var ErrDuplicate = errors.New("event id already exists")

// ErrNotFound is returned by operations that require an existing row.
var ErrNotFound = errors.New("no such row")

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}
