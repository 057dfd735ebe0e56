// Package dasherrors contains generic errors returned by repositories and handlers. The HTTP layer looks for
// the error types defined in this file and sets the response status accordingly.
//
// If multiple errors occur in some function, that function should return an error of type multierror.Error
// from package github.com/hashicorp/go-multierror that encapsulates those individual errors.
package dasherrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrAlreadyExists is a generic error to be returned whenever some resource already exists.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrAlreadyExists struct {
	Type    string // Resource type, e.g., "job"
	Value   string // Resource name, e.g., "4f1c..."
	Message string // An optional message to include in the error message
}

func (err *ErrAlreadyExists) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q already exists", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q already exists", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrNotFound is a generic error to be returned whenever some resource isn't found.
//
// See ErrAlreadyExists for more info.
type ErrNotFound struct {
	Type    string
	Value   string
	Message string
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "definition"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %q is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// HttpStatusFromError maps error types to HTTP status codes.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func HttpStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	{
		var e *ErrAlreadyExists
		if errors.As(err, &e) {
			return http.StatusConflict
		}
	}
	{
		var e *ErrNotFound
		if errors.As(err, &e) {
			return http.StatusNotFound
		}
	}
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// IsNotFound returns true if err, or anything in its chain, is an ErrNotFound.
func IsNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}
