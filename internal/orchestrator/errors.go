package orchestrator

import (
	"errors"
	"fmt"
)

// ErrSessionAlreadyStarted guards against reusing a session.
var ErrSessionAlreadyStarted = errors.New("session already started")

// FailureKind classifies an isolated actor-level failure.
type FailureKind string

const (
	// FailureCall is a transport or provider failure after the retry
	// budget was exhausted.
	FailureCall FailureKind = "call_failure"
	// FailureParse means the actor's output could not be decoded.
	FailureParse FailureKind = "parse_failure"
	// FailureRejected means the ledger rejected the actor's contribution,
	// for example an invalid resolution of a critical critique.
	FailureRejected FailureKind = "rejected"
)

// ActorFailure records one isolated actor failure for diagnostics. Actor
// failures never cascade to the phase; they degrade to zero contribution.
type ActorFailure struct {
	ActorID string      `json:"actor_id"`
	Phase   State       `json:"phase"`
	Round   int         `json:"round"`
	Kind    FailureKind `json:"kind"`
	Reason  string      `json:"reason"`
}

// ValidationError is a fatal round-level condition, such as no proposing
// actor succeeding. It terminates the session as Escalated rather than
// being swallowed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("round validation failed: %s", e.Reason)
}
