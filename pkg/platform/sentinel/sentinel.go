package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Record stores and the audit sinks
// return these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a concurrent transaction touched the same keys; the caller may retry
// - ErrClosed: the store was closed and can no longer serve transactions
// - ErrUnavailable: backend temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrClosed      = errors.New("store closed")
	ErrUnavailable = errors.New("unavailable")
)
