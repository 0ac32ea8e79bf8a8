package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Collection names a record collection.
type Collection string

const (
	Credentials Collection = "credentials"
	Proofs      Collection = "proofs"
	Settings    Collection = "settings"
)

var (
	// ErrDuplicateKey is returned when an insert reuses an existing primary key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned only by explicit-existence lookups (MustGet*).
	ErrNotFound = errors.New("record not found")

	// ErrStorageUnavailable covers an inaccessible persistence layer:
	// disk full, read-only or unopenable file, I/O failure, lock timeout,
	// or a closed store.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchemaTooNew is returned when the database was written by a newer build.
	ErrSchemaTooNew = errors.New("schema version is newer than supported")
)

// KeyError ties a duplicate or missing key to its collection.
type KeyError struct {
	Op         string
	Collection Collection
	Key        string
	Err        error // ErrDuplicateKey or ErrNotFound
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", e.Op, e.Collection, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// IsDuplicateKey returns true if err reports a duplicate primary key.
// Uses errors.Is to handle wrapped errors.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsNotFound returns true if err reports a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable returns true if err means the storage layer could not be used.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// classify maps a driver error onto the store's error taxonomy.
// The original error stays in the chain.
func classify(op string, coll Collection, key string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return &KeyError{Op: op, Collection: coll, Key: key, Err: ErrDuplicateKey}
	}
	return fmt.Errorf("%s: %w", op, unavailable(err))
}

// unavailable marks SQLite errors that mean the database cannot be used at
// all, leaving other errors untouched.
func unavailable(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case sqlite3.ErrFull, sqlite3.ErrCantOpen, sqlite3.ErrReadonly, sqlite3.ErrIoErr,
		sqlite3.ErrPerm, sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return err
}
