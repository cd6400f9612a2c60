package rufas

import (
	"errors"
	"fmt"
)

// ValidationError reports bad user input. No state is mutated when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a reference to a tag, bundle or file that does not exist.
type NotFoundError struct {
	Kind string // "tag", "bundle" or "file"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// StorageError reports a failed read or write of a persisted collection.
// Writes that completed before the failure stay committed.
type StorageError struct {
	Collection Collection
	Op         string // "read" or "write"
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s of %s failed: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ScanError reports a failed directory enumeration or stat. Callers must treat
// the workspace as disconnected rather than use a partial tree.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("scan failed: %v", e.Err)
	}
	return fmt.Sprintf("scan failed at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsStorage reports whether err is or wraps a StorageError.
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

// IsScan reports whether err is or wraps a ScanError.
func IsScan(err error) bool {
	var target *ScanError
	return errors.As(err, &target)
}
