package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Category discriminates why a completion call failed.
type Category string

const (
	CategoryNetwork           Category = "network"
	CategoryProvider          Category = "provider"
	CategoryMalformedResponse Category = "malformed_response"
	CategoryCanceled          Category = "canceled"
	CategoryUnknown           Category = "unknown"
)

// ErrNoChoices is returned when a provider answers without any choice.
var ErrNoChoices = errors.New("no completion choices returned")

// errNilError stands in for a nil *Error returned as a non-nil error value.
var errNilError = errors.New("completer returned a nil error value")

// Error is a failed completion call.
type Error struct {
	Category Category
	Provider string

	// StatusCode is the upstream HTTP status, when there was one.
	StatusCode int

	Err error
}

// Error returns the raw message of the underlying failure.
func (e *Error) Error() string {
	if e == nil {
		return errNilError.Error()
	}
	if e.Err == nil {
		return string(e.Category)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Display returns a message that is safe to show to end users verbatim.
func (e *Error) Display() string {
	if e == nil {
		return "Something went wrong while generating a response."
	}
	switch e.Category {
	case CategoryNetwork:
		return "The model server could not be reached. Please try again later."
	case CategoryProvider:
		if e.StatusCode == 429 {
			return "The model server is busy. Please try again in a moment."
		}
		if e.StatusCode != 0 {
			return fmt.Sprintf("The model server rejected the request (status %d).", e.StatusCode)
		}
		return "The model server rejected the request."
	case CategoryMalformedResponse:
		return "The model returned a response that could not be read."
	case CategoryCanceled:
		return "The request was canceled before the model answered."
	default:
		return "Something went wrong while generating a response."
	}
}

// NewError wraps err with a category. A nil err yields nil.
func NewError(category Category, provider string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Category: category, Provider: provider, Err: err}
}

// Classify converts any error returned by a completer into a new *Error.
// Errors that are already classified keep their category. The error passed
// in is never modified, so completers may return shared error values.
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}

	var cerr *Error
	if errors.As(err, &cerr) {
		if cerr == nil {
			return NewError(CategoryUnknown, provider, errNilError)
		}
		c := *cerr
		if c.Provider == "" {
			c.Provider = provider
		}
		return &c
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewError(CategoryCanceled, provider, err)
	case errors.Is(err, ErrNoChoices):
		return NewError(CategoryMalformedResponse, provider, err)
	case isNetworkError(err):
		return NewError(CategoryNetwork, provider, err)
	default:
		return NewError(CategoryUnknown, provider, err)
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
