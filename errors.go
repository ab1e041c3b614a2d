package fixtures

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError reports a failed write or delete against a collection. It matches ErrStorageUnavailable.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%v: %v: %v", ErrStorageUnavailable, e.Op, e.Err)
	}
	return fmt.Sprintf("%v: %v %v: %v", ErrStorageUnavailable, e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func invalidArgument(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %v", ErrInvalidArgument, fmt.Sprintf(format, a...))
}
