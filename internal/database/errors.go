package database

import (
	"context"
	"errors"
	"fmt"
)

// StorageErrorKind separates failures the user can retry from everything else
type StorageErrorKind string

const (
	// StorageConnection covers unreachable databases, resets and timeouts
	StorageConnection StorageErrorKind = "connection"
	// StorageGeneric covers every other query failure
	StorageGeneric StorageErrorKind = "generic"
)

// StorageError is returned by write paths once retries are exhausted
type StorageError struct {
	Op   string
	Kind StorageErrorKind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("database error when %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout rather than a refused or dropped connection
func (e *StorageError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded) || isTimeout(e.Err)
}

func newStorageError(op string, err error) *StorageError {
	kind := StorageGeneric
	if IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		kind = StorageConnection
	}
	return &StorageError{Op: op, Kind: kind, Err: err}
}

// IsConnectionError reports whether err is a StorageError caused by the connection
func IsConnectionError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr) && storageErr.Kind == StorageConnection
}
