package errors

import (
	stderrors "errors"
	"fmt"
)

// Caller-contract violations: the local application drove a session incorrectly.
// They are never exchanged with the peer.
var (
	ErrProtocolState        = fmt.Errorf("action invalid in current session state")
	ErrUnsupportedOperation = fmt.Errorf("action unsupported for session role")
	ErrStaleTimestamp       = fmt.Errorf("invite timestamp not after session clock")
	ErrMissingGroup         = fmt.Errorf("private group unknown to session")
)

// Format errors on remote payloads. Once the session is known they are
// normalized to a protocol abort.
var (
	ErrMalformedMessage = fmt.Errorf("malformed message")
	ErrInvalidMessage   = fmt.Errorf("invalid message")
	ErrInvalidSignature = fmt.Errorf("invalid invite signature")
	ErrMalformedSession = fmt.Errorf("malformed session record")
)

var (
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrContactNotFound  = fmt.Errorf("contact not found")
	ErrGroupNotFound    = fmt.Errorf("private group not found")
	ErrMessageNotFound  = fmt.Errorf("message not found")
	ErrTooManyConflicts = fmt.Errorf("transaction conflict retries exhausted")
	ErrInvalidSeed      = fmt.Errorf("identity seed must be a base58 ed25519 seed")
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// Is and As mirror the standard library so callers need a single errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
