// Package errors classifies failures so callers can decide how to surface
// them (HTTP status, retry, participant-facing text).
package errors

import (
	"context"
	"errors"
	"net/http"
)

// Category groups failures by who caused them and whether they can heal.
type Category int

// Categories up to CategoryDataConflict are caused by the caller.
const (
	CategoryNoError Category = iota
	CategoryDataError
	CategoryUnauthorized
	CategoryForbidden
	CategoryResourceNotFound
	CategoryDataConflict
	// CategoryDependencyFailure covers the chain, market data and the
	// messaging transport.
	CategoryDependencyFailure
	CategoryConnectionTimeout
	CategoryGeneralError
)

type categoryInfo struct {
	name      string
	status    int
	retryable bool
	fallback  string
}

var categories = map[Category]categoryInfo{
	CategoryNoError:           {name: "none", status: http.StatusOK},
	CategoryDataError:         {name: "bad_request", status: http.StatusBadRequest, fallback: "bad request"},
	CategoryUnauthorized:      {name: "unauthorized", status: http.StatusUnauthorized, fallback: "unauthorized"},
	CategoryForbidden:         {name: "forbidden", status: http.StatusForbidden, fallback: "request forbidden"},
	CategoryResourceNotFound:  {name: "not_found", status: http.StatusNotFound, fallback: "resource not found"},
	CategoryDataConflict:      {name: "conflict", status: http.StatusConflict, fallback: "conflict"},
	CategoryDependencyFailure: {name: "dependency", status: http.StatusBadGateway, retryable: true, fallback: "dependency failure"},
	CategoryConnectionTimeout: {name: "timeout", status: http.StatusGatewayTimeout, retryable: true, fallback: "timeout"},
	CategoryGeneralError:      {name: "internal", status: http.StatusInternalServerError, fallback: "internal server error"},
}

func (c Category) info() categoryInfo {
	if info, ok := categories[c]; ok {
		return info
	}
	return categories[CategoryGeneralError]
}

// String returns the metric label for the category.
func (c Category) String() string { return c.info().name }

// ServiceError carries a category, a caller-safe message and the cause.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

func (err *ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

func (err *ServiceError) Unwrap() error { return err.Err }

// StatusCode maps the category to an HTTP status.
func (err *ServiceError) StatusCode() int { return err.Category.info().status }

// Is checks that err is a ServiceError with the given category.
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Category == cat
}

// CategoryOf returns the category of err. Unclassified errors are general
// errors, except deadlines which count as timeouts.
func CategoryOf(err error) Category {
	var svcErr *ServiceError
	switch {
	case err == nil:
		return CategoryNoError
	case errors.As(err, &svcErr):
		return svcErr.Category
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryConnectionTimeout
	default:
		return CategoryGeneralError
	}
}

// IsInternalError reports whether err is not attributable to the caller.
func IsInternalError(err error) bool {
	return CategoryOf(err) > CategoryDataConflict
}

// IsRetryable reports whether repeating the failed operation may succeed.
func IsRetryable(err error) bool {
	return CategoryOf(err).info().retryable
}

func newError(cat Category, err error, message string) error {
	if err == nil {
		fallback := cat.info().fallback
		if message != "" && cat != CategoryGeneralError {
			fallback += ": " + message
		}
		err = errors.New(fallback)
	}
	return &ServiceError{Category: cat, Message: message, Err: err}
}

// GeneralError returns an unexpected failure. Its message is never shown
// to callers; err is logged.
func GeneralError(err error) error {
	return newError(CategoryGeneralError, err, "Internal Server Error")
}

func ResourceNotFoundError(err error, message string) error {
	return newError(CategoryResourceNotFound, err, message)
}

func BadRequestError(err error, message string) error {
	return newError(CategoryDataError, err, message)
}

func ForbiddenError(err error, message string) error {
	return newError(CategoryForbidden, err, message)
}

func UnAuthorizedError(err error, message string) error {
	return newError(CategoryUnauthorized, err, message)
}

func ConflictError(err error, message string) error {
	return newError(CategoryDataConflict, err, message)
}

// DependencyFailureError wraps a failure of an external collaborator.
func DependencyFailureError(err error, message string) error {
	return newError(CategoryDependencyFailure, err, message)
}

// TimeoutError wraps a dependency timeout.
func TimeoutError(err error, message string) error {
	return newError(CategoryConnectionTimeout, err, message)
}
