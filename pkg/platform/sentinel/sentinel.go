package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors without importing store internals.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the ledger
// - ErrConflict: append collided with an existing record id
// - ErrExpired: cached value or suspension window has lapsed
// - ErrTombstoned: record exists but has a tombstone targeting it
// - ErrInvalidState: entity in wrong state for the requested operation
// - ErrUnavailable: backing store or broker temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrTombstoned   = errors.New("tombstoned")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
