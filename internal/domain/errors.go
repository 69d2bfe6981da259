package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrInvalidSchedule is returned when a schedule definition is malformed or a
	// one-time schedule points at the past. Nothing is persisted.
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrClaimConflict means a conditional status transition lost the race:
	// the entry was no longer in the expected status.
	ErrClaimConflict = errors.New("claim conflict")
	ErrUnknownType   = errors.New("unknown notification type")
	ErrNotSupported  = errors.New("not supported by provider")
)
