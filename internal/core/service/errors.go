package service

import (
	"errors"
	"fmt"

	"github.com/glossly/dealdesk/internal/core/domain"
)

var (
	// ErrOrderNotFound is returned by commands against ids absent from the
	// local collection.
	ErrOrderNotFound = errors.New("order not found")

	// ErrIllegalTransition is the backend-side rejection of an edge not in
	// the transition table. The HTTP handler maps it to 422.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// FetchError wraps a failed initial load. Recoverable: the caller may retry
// manually; the core never retries on its own.
type FetchError struct {
	DealerID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("loading orders for dealer %s: %v", e.DealerID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TransitionError names a blocked edge. Never retried; always surfaced to
// the user.
type TransitionError struct {
	OrderID string
	From    domain.Status
	To      domain.Status
	Actor   domain.Actor
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s: %s may not move %s -> %s", e.OrderID, e.Actor, e.From, e.To)
}

// ConcurrentMutationError means another command on the same order is still
// in flight. The caller should disable the control, not retry.
type ConcurrentMutationError struct {
	OrderID string
}

func (e *ConcurrentMutationError) Error() string {
	return fmt.Sprintf("order %s: another action is already in flight", e.OrderID)
}

// ServerRejectionError carries the store's independent refusal of a
// transition the local validator allowed. The server message is kept
// verbatim and treated as authoritative; no local state is mutated.
type ServerRejectionError struct {
	OrderID    string
	StatusCode int
	Message    string
}

func (e *ServerRejectionError) Error() string {
	return fmt.Sprintf("order %s: store rejected transition (%d): %s", e.OrderID, e.StatusCode, e.Message)
}
