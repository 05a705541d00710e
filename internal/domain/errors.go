package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrWrite      = errors.New("write failed")
	ErrFetch      = errors.New("fetch failed")
	ErrValidation = errors.New("validation failed")
	ErrGeoLookup  = errors.New("geo lookup failed")
)

// NotFoundError: no cabin with the given identifier.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("cabin %d not found", e.ID) }
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// WriteError wraps a store or enrichment failure during a write.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

// FetchError is an upstream HTTP failure. Status is 0 for transport errors.
type FetchError struct {
	Source string
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: GET %s: status %d", e.Source, e.URL, e.Status)
	}
	return fmt.Sprintf("%s: GET %s: %v", e.Source, e.URL, e.Err)
}
func (e *FetchError) Unwrap() error { return e.Err }
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// ValidationError: a structurally required field is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// GeoLookupError: the administrative-boundary lookup failed. It is also a fetch failure.
type GeoLookupError struct {
	Status int
	Err    error
}

func (e *GeoLookupError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("reverse geocoding failed: status %d", e.Status)
	}
	return fmt.Sprintf("reverse geocoding failed: %v", e.Err)
}
func (e *GeoLookupError) Unwrap() error { return e.Err }
func (e *GeoLookupError) Is(target error) bool {
	return target == ErrGeoLookup || target == ErrFetch
}
