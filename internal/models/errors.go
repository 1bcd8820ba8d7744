package models

import (
	"errors"
	"fmt"
)

// ErrorKind represents different categories of errors
type ErrorKind int

const (
	PackageNotFound ErrorKind = iota
	ArchiveNotFound
	EntryNotFound
	UnsupportedArchive
	AmbiguousMetadata
	NoMetadata
	UpstreamUnavailable
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case PackageNotFound:
		return "PackageNotFound"
	case ArchiveNotFound:
		return "ArchiveNotFound"
	case EntryNotFound:
		return "EntryNotFound"
	case UnsupportedArchive:
		return "UnsupportedArchive"
	case AmbiguousMetadata:
		return "AmbiguousMetadata"
	case NoMetadata:
		return "NoMetadata"
	case UpstreamUnavailable:
		return "UpstreamUnavailable"
	default:
		return "Unknown"
	}
}

// Error represents a failure while browsing a package index or archive
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("[%s] %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("[%s]", e.Kind)
	}
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error of the given kind
func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WrapError creates an Error of the given kind wrapping an underlying cause
func WrapError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// IsKind reports whether any error in err's chain is an Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
