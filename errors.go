// SPDX-License-Identifier: Apache-2.0

package keybind

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple error checking with [errors.Is].
// For detailed error information, use [errors.As] with the typed errors below.
var (
	// ErrFileNotFound indicates an input path is missing or is not a regular file.
	ErrFileNotFound = errors.New("file not found")
	// ErrSyntax indicates a document is not valid JSON.
	ErrSyntax = errors.New("syntax error")
	// ErrDuplicateKey indicates records in a list share the same key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrTypeMismatch indicates merge inputs have different kinds.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrInsufficientInputs indicates too few documents were supplied to merge.
	ErrInsufficientInputs = errors.New("insufficient inputs")
	// ErrInvalidMode indicates an unknown or conflicting mode was requested.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrUnsupportedOperation indicates the operation is not defined for the document kind.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrMarshal indicates a marshaling or unmarshaling operation failed.
	ErrMarshal = errors.New("marshal error")
)

// SyntaxError is returned when a document cannot be parsed as JSON.
type SyntaxError struct {
	// Name identifies the document (a file path, or "-" for standard input).
	Name string
	// Offset is the byte offset of the failure, or -1 when unknown.
	Offset int64
	// Err is the underlying decoder error.
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: invalid JSON at offset %d: %v", e.Name, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: invalid JSON: %v", e.Name, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// DuplicateKeyError is returned when a list contains records sharing a key.
type DuplicateKeyError struct {
	// Name identifies the document.
	Name string
	// Groups holds every key that occurs more than once.
	Groups []KeyGroup
}

func (e *DuplicateKeyError) Error() string {
	parts := make([]string, len(e.Groups))
	for i, g := range e.Groups {
		parts[i] = fmt.Sprintf("%s (%d)", g.KeyString(), g.Count)
	}
	return fmt.Sprintf("%s: duplicate keys: %s", e.Name, strings.Join(parts, ", "))
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// TypeMismatchError is returned when merge inputs disagree on their kind
// and no explicit type was given.
type TypeMismatchError struct {
	// Name identifies the first offending document.
	Name string
	// Want is the kind every document was expected to have.
	Want Kind
	// Got is the kind of the offending document.
	Got Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s is a %s, expected a %s", e.Name, e.Got, e.Want)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// MarshalError is returned when unmarshaling or marshaling a document fails.
type MarshalError struct {
	// Err is the underlying error returned by a marshaling function.
	Err error
	// DocIndex tells which document the error occurred in, or -1 for the result.
	DocIndex int
}

func (e *MarshalError) Error() string {
	if e.DocIndex < 0 {
		return fmt.Sprintf("cannot marshal merged document: %v", e.Err)
	}
	return fmt.Sprintf("cannot marshal document at position %d: %v", e.DocIndex, e.Err)
}

func (e *MarshalError) Unwrap() error {
	return e.Err
}

func (e *MarshalError) Is(target error) bool {
	return target == ErrMarshal
}
