package scholarship

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotRegistered      = errors.New("student not registered")
	ErrNotApproved        = errors.New("scholarship not yet approved")
	ErrAlreadyClaimed     = errors.New("scholarship already claimed")
	ErrAlreadyRegistered  = errors.New("student already registered")
	ErrNotFound           = errors.New("student not found")
	ErrNotInitialized     = errors.New("scholarship not initialized")
	ErrAlreadyInitialized = errors.New("scholarship already initialized")
)

// ValidationError reports a malformed input, usually an address rejected by
// the identity validator.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StorageError wraps a failure of the backing store. The operation that hit
// it applied no writes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage fault during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Error codes returned by Code.
const (
	CodeOK                 = "ok"
	CodeUnauthorized       = "unauthorized"
	CodeNotRegistered      = "not_registered"
	CodeNotApproved        = "not_approved"
	CodeAlreadyClaimed     = "already_claimed"
	CodeAlreadyRegistered  = "already_registered"
	CodeNotFound           = "not_found"
	CodeNotInitialized     = "not_initialized"
	CodeAlreadyInitialized = "already_initialized"
	CodeValidation         = "validation_error"
	CodeStorage            = "storage_fault"
	CodeInternal           = "internal"
)

var sentinelCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, CodeUnauthorized},
	{ErrNotRegistered, CodeNotRegistered},
	{ErrNotApproved, CodeNotApproved},
	{ErrAlreadyClaimed, CodeAlreadyClaimed},
	{ErrAlreadyRegistered, CodeAlreadyRegistered},
	{ErrNotFound, CodeNotFound},
	{ErrNotInitialized, CodeNotInitialized},
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
}

// Code maps an error returned by the engine to a stable code.
func Code(err error) string {
	if err == nil {
		return CodeOK
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return CodeValidation
	}
	var serr *StorageError
	if errors.As(err, &serr) {
		return CodeStorage
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return CodeInternal
}

// asStorageError leaves engine errors untouched and wraps anything else
// coming out of the store.
func asStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if Code(err) != CodeInternal {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
