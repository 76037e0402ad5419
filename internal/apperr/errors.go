// Package apperr defines the error taxonomy shared by every layer.  The
// sentinel values let handlers map failures to HTTP statuses with
// errors.Is, while ConflictError and ValidationError carry the seat or
// field the caller has to act on.
package apperr

import (
    "errors"
    "fmt"
    "strings"
)

// ErrNotFound is returned when a seating, seat, hold or ticket type does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller acts on a hold owned by someone else.
// Handlers translate it into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a seat is not in the state an operation needs.
// Handlers translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrValidation is returned when input is rejected before any mutation.
var ErrValidation = errors.New("validation failed")

// ErrHoldExpired is returned when an operation assumes a live hold and finds
// that its lease has lapsed.
var ErrHoldExpired = errors.New("selection expired, please reselect")

// ConflictError names the first seat that blocked a hold batch.  Unavailable
// lists every requested seat observed as not available when the batch was
// rejected, so the buyer can pick different seats in one round trip.
type ConflictError struct {
    SeatUID     string
    Status      string
    Unavailable []string
}

func (e *ConflictError) Error() string {
    if e.Status != "" {
        return fmt.Sprintf("seat %s is not available (%s)", e.SeatUID, e.Status)
    }
    return fmt.Sprintf("seat %s is not available", e.SeatUID)
}

// Is makes errors.Is(err, ErrConflict) hold for conflict errors.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError names the rejected field.
type ValidationError struct {
    Field  string
    Reason string
}

func (e *ValidationError) Error() string {
    if e.Field == "" {
        return e.Reason
    }
    return e.Field + ": " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) hold for validation errors.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError with a formatted reason.
func Invalid(field, format string, args ...any) error {
    return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the kind and id of the missing entity.
func NotFound(kind, id string) error {
    return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Conflict builds a ConflictError.
func Conflict(seatUID, status string, unavailable ...string) error {
    return &ConflictError{SeatUID: seatUID, Status: status, Unavailable: unavailable}
}

// Field extracts the field of a ValidationError anywhere in err's chain.
func Field(err error) string {
    var ve *ValidationError
    if errors.As(err, &ve) {
        return ve.Field
    }
    return ""
}

// Seats extracts the conflicting seats of a ConflictError anywhere in err's
// chain, first seat first.
func Seats(err error) []string {
    var ce *ConflictError
    if !errors.As(err, &ce) {
        return nil
    }
    out := []string{ce.SeatUID}
    for _, s := range ce.Unavailable {
        if s != ce.SeatUID {
            out = append(out, s)
        }
    }
    return out
}

// Join renders a seat list for log lines.
func Join(seats []string) string { return "[" + strings.Join(seats, ",") + "]" }
