package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusCountered  Status = "countered"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusPaid       Status = "paid"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in lifecycle order. Tests range over it to
// cover the full transition matrix.
var Statuses = []Status{
	StatusPending,
	StatusCountered,
	StatusAccepted,
	StatusRejected,
	StatusPaid,
	StatusInProgress,
	StatusCompleted,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCountered, StatusAccepted, StatusRejected,
		StatusPaid, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status has no outgoing edges.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

type Actor string

const (
	ActorDealer Actor = "dealer"
	ActorClient Actor = "client"
)

func (a Actor) Valid() bool {
	return a == ActorDealer || a == ActorClient
}

// Order is the unit of negotiation between one client and one dealer for one
// service request (gig). ClientName and DealerName are display projections
// joined in by the backend; they are never authoritative.
type Order struct {
	ID            string           `json:"id"`
	GigID         string           `json:"gigId"`
	ClientID      string           `json:"clientId"`
	DealerID      string           `json:"dealerId"`
	ClientName    string           `json:"clientName,omitempty"`
	DealerName    string           `json:"dealerName,omitempty"`
	ProposedPrice decimal.Decimal  `json:"proposedPrice"`
	AgreedPrice   *decimal.Decimal `json:"agreedPrice"`
	ScheduledDate *time.Time       `json:"scheduledDate,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Status        Status           `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	OpenedAt      *time.Time       `json:"openedAt"`
}

var (
	ErrInvalidPrice  = errors.New("proposed price must be positive")
	ErrSameParty     = errors.New("client and dealer must differ")
	ErrMissingParty  = errors.New("missing client or dealer id")
	ErrMissingGig    = errors.New("missing gig id")
	ErrInvalidStatus = errors.New("unknown order status")
	ErrInvalidActor  = errors.New("unknown actor")
)

// NewOrderRequest carries the client-supplied fields for order creation.
type NewOrderRequest struct {
	GigID         string          `json:"gigId"`
	ClientID      string          `json:"clientId"`
	DealerID      string          `json:"dealerId"`
	ProposedPrice decimal.Decimal `json:"proposedPrice"`
	Notes         string          `json:"notes,omitempty"`
	ScheduledDate *time.Time      `json:"scheduledDate,omitempty"`
}

func (r NewOrderRequest) Validate() error {
	if r.GigID == "" {
		return ErrMissingGig
	}
	if r.ClientID == "" || r.DealerID == "" {
		return ErrMissingParty
	}
	if r.ClientID == r.DealerID {
		return ErrSameParty
	}
	if !r.ProposedPrice.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}

// Negotiating reports whether scheduling details are still editable.
func (o Order) Negotiating() bool {
	return o.Status == StatusPending || o.Status == StatusCountered
}
