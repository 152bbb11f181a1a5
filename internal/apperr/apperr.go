// Package apperr classifies errors into the processor's error taxonomy.
// Intake and the HTTP adapter use the class to choose the status code
// returned to a caller; the workers do not consult it and decide retries
// at each call site.
package apperr

import (
	"errors"
	"fmt"
)

// Class is the error taxonomy from the processor's error handling design.
type Class int

const (
	// Validation errors are caller-visible and map to HTTP 400.
	Validation Class = iota
	// NotFound errors map to HTTP 404.
	NotFound
	// Transient errors are infrastructure hiccups: retried on the next
	// fixed-interval poll.
	Transient
	// BusinessHalt errors (insufficient balance) stall a batch silently
	// and do not count against retry_count.
	BusinessHalt
	// Terminal errors move a batch and its payments straight to FAILED.
	Terminal
)

func (c Class) String() string {
	switch c {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	case BusinessHalt:
		return "business_halt"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a taxonomy class and a component tag.
type Error struct {
	Class     Class
	Component string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Component, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a class and component. Returns nil if err is nil.
func New(class Class, component string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, Component: component, Err: err}
}

// Wrap adds a message to err, preserving its class if err already carries one.
// Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ClassOf extracts the taxonomy class from err, defaulting to Transient
// for plain errors that were never classified (the safe default: count
// against retries rather than stall or fail silently).
func ClassOf(err error) Class {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Class
	}
	return Transient
}
