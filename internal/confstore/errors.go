package confstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a path, key, collection, or record does not
	// resolve to anything in the document. Read-type operations treat this
	// as a normal outcome; callers decide severity.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports that Create was asked to write over an
	// existing document without overwrite.
	ErrAlreadyExists = errors.New("already exists")

	// ErrMalformedDocument reports that the file exists but does not hold
	// well-formed JSON.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrIOFailure reports a failed temp-file create/write/replace step.
	ErrIOFailure = errors.New("io failure")
)

// DuplicateKeyError identifies the key/value pair that collided during
// AddRecord's uniqueness check.
type DuplicateKeyError struct {
	Collection string
	Key        string
	Value      string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %s already contains a record with %s=%q", e.Collection, e.Key, e.Value)
}

func ioFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIOFailure, op, err)
}
