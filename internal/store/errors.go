package store

import "errors"

// ErrNotFound is returned when a snapshot lookup finds no row.
var ErrNotFound = errors.New("store: not found")

// ErrInvalidTransaction is returned when a transaction cannot be started
// or committed.
var ErrInvalidTransaction = errors.New("store: invalid transaction")

// ErrConstraintViolation names a write that affected zero rows where it
// expected to affect exactly one. No SQLiteStore method returns it;
// DeleteSnapshot reports a missing row as ErrNotFound.
var ErrConstraintViolation = errors.New("store: constraint violation")
