package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is returned when caller input breaks a rule. Field is
// empty for rule-level failures such as a slot collision.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError is returned when an article, slug or group does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ConflictError is returned when a unique value could not be claimed.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// UpstreamAssetError wraps a failed fetch of an external image or font.
type UpstreamAssetError struct {
	URL    string
	Status int
	Err    error
}

func (e *UpstreamAssetError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream asset %s: status %d", e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream asset %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("upstream asset %s: failed", e.URL)
}

func (e *UpstreamAssetError) Unwrap() error {
	return e.Err
}

// StoreError wraps an unexpected persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Constructors
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

func NewFieldError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{Message: msg}
}

func NewConflictError(msg string) error {
	return &ConflictError{Message: msg}
}

func NewUpstreamAssetError(url string, status int, err error) error {
	return &UpstreamAssetError{URL: url, Status: status, Err: err}
}

// Store wraps err as a StoreError. A nil err stays nil, and errors that
// already carry a taxonomy type pass through untouched.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidationError(err) || IsNotFoundError(err) || IsConflictError(err) || IsUpstreamAssetError(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Type checkers
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFoundError(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflictError(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsUpstreamAssetError(err error) bool {
	var e *UpstreamAssetError
	return errors.As(err, &e)
}

func IsStoreError(err error) bool {
	var e *StoreError
	return errors.As(err, &e)
}

// StatusCode maps err to an HTTP status and a message safe to show clients.
func StatusCode(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Message
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound, nf.Message
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return http.StatusConflict, ce.Message
	}
	if IsUpstreamAssetError(err) {
		return http.StatusBadGateway, "Failed to fetch upstream asset"
	}
	return http.StatusInternalServerError, "internal server error"
}

// FieldOf returns the field name of a ValidationError, if any.
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
