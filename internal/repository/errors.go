// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between failure scenarios. ErrAlreadyRegistered and
// ErrCapacityFull are expected business outcomes of the registration
// ledger, not faults: handlers render them as informational responses and
// never log them as errors.
package repository

import "errors"

// ErrEventNotFound is returned when the referenced event does not exist,
// for example because it was deleted concurrently. Handlers translate this
// into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrForbidden is returned when the caller attempts an operation on an
// event they do not own. Handlers translate this into an HTTP 403
// response. Seeded events with no owner are editable by no one.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyRegistered is returned when a user registers for an event they
// already hold a registration for. The call is idempotent: nothing is
// mutated and the existing registration stands.
var ErrAlreadyRegistered = errors.New("already registered")

// ErrCapacityFull is returned when an event has no remaining seats. No
// registration row is inserted and occupancy is unchanged.
var ErrCapacityFull = errors.New("event is at capacity")

// ErrCapacityTooLow is returned when an owner attempts to lower an event's
// capacity below its current occupancy, which would strand existing
// registrations past the capacity bound.
var ErrCapacityTooLow = errors.New("capacity below current occupancy")
