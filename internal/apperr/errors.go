// Package apperr defines the typed error taxonomy used across the ingestion
// and query pipeline. Every error that can cross a package boundary and
// reach an HTTP handler is a *ServiceError, so a handler never needs to
// guess the right status code from an opaque error string.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the kind of failure independent of its message text.
type Code string

const (
	CodeServiceNotFound  Code = "SERVICE_NOT_FOUND"
	CodeSessionNotFound  Code = "SESSION_NOT_FOUND"
	CodeInvalidOrigin    Code = "INVALID_ORIGIN"
	CodeInvalidUUID      Code = "INVALID_UUID"
	CodeInvalidIP        Code = "INVALID_IP"
	CodeInvalidDateRange Code = "INVALID_DATE_RANGE"
	CodeDatabase         Code = "DATABASE_ERROR"
	CodeGeoIP            Code = "GEOIP_ERROR"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// ServiceError is the common error shape returned by every package in this
// module. Details carries optional structured context (e.g. the offending
// field) surfaced to API clients; Err is the wrapped cause, if any.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of e with Details merged in.
func (e *ServiceError) WithDetails(details map[string]interface{}) *ServiceError {
	clone := *e
	merged := make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	clone.Details = merged
	return &clone
}

func New(code Code, status int, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status}
}

func Wrap(code Code, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Constructors for the error kinds named in the component design.

func ServiceNotFound() *ServiceError {
	return New(CodeServiceNotFound, http.StatusNotFound, "service not found")
}

func SessionNotFound() *ServiceError {
	return New(CodeSessionNotFound, http.StatusNotFound, "session not found")
}

func InvalidOrigin() *ServiceError {
	return New(CodeInvalidOrigin, http.StatusForbidden, "origin not allowed for this service")
}

func InvalidUUID(err error) *ServiceError {
	return Wrap(CodeInvalidUUID, http.StatusBadRequest, "malformed identifier", err)
}

func InvalidIP(ip string) *ServiceError {
	return New(CodeInvalidIP, http.StatusBadRequest, fmt.Sprintf("invalid ip address: %q", ip))
}

func InvalidDateRange() *ServiceError {
	return New(CodeInvalidDateRange, http.StatusBadRequest, "invalid date range")
}

func Database(err error) *ServiceError {
	return Wrap(CodeDatabase, http.StatusInternalServerError, "database operation failed", err)
}

func GeoIPErr(err error) *ServiceError {
	return Wrap(CodeGeoIP, http.StatusInternalServerError, "geoip lookup failed", err)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(CodeInternal, http.StatusInternalServerError, message, err)
}

// As extracts a *ServiceError from err, if present anywhere in its chain.
func As(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HTTPStatus returns the status code to use for err, defaulting to 500 for
// errors that were never classified.
func HTTPStatus(err error) int {
	if se, ok := As(err); ok {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
