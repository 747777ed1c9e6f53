// Package probeerrors contains generic errors returned by the delivery probe.
// Callers should look for these types with errors.As rather than matching on error strings,
// since most of them are wrapped with github.com/pkg/errors on the way up.
//
// If multiple errors occur in some function (e.g., if the drain wait fails for several modes),
// that function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package probeerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "totalRequests"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", fmt.Sprint(err.Value), err.Name)
	}
	return fmt.Sprintf("value %q is invalid for field %q; %s", fmt.Sprint(err.Value), err.Name, err.Message)
}

// ErrUnexpectedStatus is returned when a remote HTTP endpoint answers with a non-2xx status.
type ErrUnexpectedStatus struct {
	Url        string
	StatusCode int
	Body       string // Optional, truncated response body
}

func (err *ErrUnexpectedStatus) Error() string {
	if err.Body == "" {
		return fmt.Sprintf("request to %s failed with status %d", err.Url, err.StatusCode)
	}
	return fmt.Sprintf("request to %s failed with status %d: %s", err.Url, err.StatusCode, err.Body)
}

// ErrMissingField is returned when a JSON response decodes but lacks a required field.
type ErrMissingField struct {
	Field string
	Url   string
}

func (err *ErrMissingField) Error() string {
	return fmt.Sprintf("response from %s has no field %q", err.Url, err.Field)
}

// IsInvalidArgument reports whether any error in err's chain is an ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var e *ErrInvalidArgument
	return errors.As(err, &e)
}
