package repository

import "errors"

// ErrJobFinalized is returned when a completion targets a job already in a
// terminal state. Terminal rows are never resurrected.
var ErrJobFinalized = errors.New("outbox job is already finalized")

// ErrSubscriptionNotFound is returned when revoking an unknown subscription id.
var ErrSubscriptionNotFound = errors.New("push subscription not found")
