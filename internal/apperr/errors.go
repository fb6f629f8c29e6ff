// Package apperr holds the error taxonomy shared by the registry, the resolver,
// the query compiler and the CRUD orchestrator.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
)

// UnknownEntityTypeError is returned when a descriptor lookup misses.
type UnknownEntityTypeError struct {
	Type string
}

func (e UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("unknown entity type %q", e.Type)
}

// ArtifactConstructionError signals a resolved artifact that could not be built.
// It is a configuration defect and is never downgraded to a default artifact.
type ArtifactConstructionError struct {
	Ref string
	Err error
}

func (e ArtifactConstructionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("artifact %s: construction failed", e.Ref)
	}
	return fmt.Sprintf("artifact %s: %v", e.Ref, e.Err)
}

func (e ArtifactConstructionError) Unwrap() error { return e.Err }

// InvalidFilterError names the query parameter that could not be compiled.
type InvalidFilterError struct {
	Param  string
	Reason string
}

func (e InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %s", e.Param, e.Reason)
}

// ValidationError carries one message per failing input field.
type ValidationError struct {
	Errs *multierror.Error
}

// NewValidationError builds a ValidationError from field messages.
func NewValidationError(messages ...string) ValidationError {
	var merr *multierror.Error
	for _, m := range messages {
		merr = multierror.Append(merr, errors.New(m))
	}
	return ValidationError{Errs: merr}
}

// Append adds a field message and returns the updated error.
func (e ValidationError) Append(message string) ValidationError {
	e.Errs = multierror.Append(e.Errs, errors.New(message))
	return e
}

// Messages lists the field messages in the order they were appended.
func (e ValidationError) Messages() []string {
	if e.Errs == nil {
		return nil
	}
	out := make([]string, 0, len(e.Errs.Errors))
	for _, err := range e.Errs.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Empty reports whether no message was collected.
func (e ValidationError) Empty() bool {
	return e.Errs == nil || len(e.Errs.Errors) == 0
}

func (e ValidationError) Error() string {
	if e.Empty() {
		return "validation failed"
	}
	return e.Errs.Error()
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "Resource not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure. It is surfaced as-is and never retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	if e.Err == nil {
		return e.Op + ": persistence failure"
	}
	return e.Err.Error()
}

func (e PersistenceError) Unwrap() error { return e.Err }

func IsUnknownEntityType(err error) bool {
	var target UnknownEntityTypeError
	return errors.As(err, &target)
}

func IsArtifactConstruction(err error) bool {
	var target ArtifactConstructionError
	return errors.As(err, &target)
}

func IsInvalidFilter(err error) bool {
	var target InvalidFilterError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target PersistenceError
	return errors.As(err, &target)
}

// Status maps an error to its HTTP-equivalent status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsInvalidFilter(err), IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
