package intake

import (
	"errors"
	"strings"
)

var (
	ErrInvalidName = errors.New("name must be between 2 and 100 characters long")

	// ErrStoreUnavailable wraps infrastructure failures; callers show a
	// generic retry-later message.
	ErrStoreUnavailable = errors.New("booking store unavailable")

	// ErrCodeUnavailable means no unique booking code could be committed
	// within the configured attempts.
	ErrCodeUnavailable = errors.New("no booking code available")
)

// MissingFieldsError lists required fields that were absent or blank.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// AdminRedirectError is not a failure: the submission matched the admin
// identity and the caller should send the actor to Location instead.
type AdminRedirectError struct {
	Location string
}

func (e *AdminRedirectError) Error() string {
	return "admin identity detected, redirect to " + e.Location
}

// InvalidPhoneError carries the normalizer's reason and the raw input.
type InvalidPhoneError struct {
	Reason string
	Input  string
}

func (e *InvalidPhoneError) Error() string {
	return "invalid phone: " + e.Reason
}
