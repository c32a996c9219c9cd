// Package core holds the persistent data model shared by storage, txpool,
// and consensus: blocks, quorum certificates, commands, transaction-pool
// records, substates, locks, foreign proposals, and votes.
package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist in storage.
var ErrNotFound = errors.New("not found")

// StorageErrKind classifies a StorageError per spec.md §7.
type StorageErrKind string

const (
	StorageErrNotFound          StorageErrKind = "not_found"
	StorageErrDbInconsistency   StorageErrKind = "db_inconsistency"
	StorageErrQuery             StorageErrKind = "query_error"
	StorageErrMalformedDbData   StorageErrKind = "malformed_db_data"
	StorageErrNotAllItemsFound  StorageErrKind = "not_all_items_found"
	StorageErrInvalidIntegerCast StorageErrKind = "invalid_integer_cast"
)

// StorageError is the typed error surfaced by every storage operation.
// DbInconsistency and MalformedDbData are fatal: the caller should treat
// them as corruption, not as a retryable condition.
type StorageError struct {
	Kind StorageErrKind
	Msg  string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("storage: %s: %s", e.Kind, e.Msg)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Fatal reports whether this error kind indicates on-disk corruption.
func (e *StorageError) Fatal() bool {
	return e.Kind == StorageErrDbInconsistency || e.Kind == StorageErrMalformedDbData
}

// WrapStorage builds a StorageError, formatting msg with args the way
// fmt.Errorf would, then attaching err as the wrapped cause.
func WrapStorage(kind StorageErrKind, msg string, err error, args ...any) *StorageError {
	return &StorageError{Kind: kind, Msg: fmt.Sprintf(msg, args...), Err: err}
}

// NewStorageError builds a StorageError with no wrapped cause.
func NewStorageError(kind StorageErrKind, msg string, args ...any) *StorageError {
	return &StorageError{Kind: kind, Msg: fmt.Sprintf(msg, args...)}
}

// IsFatalStorageErr reports whether err is a StorageError indicating
// corruption (DbInconsistency or MalformedDbData).
func IsFatalStorageErr(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Fatal()
	}
	return false
}
