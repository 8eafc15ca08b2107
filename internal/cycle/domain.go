// Package cycle manages economic cycles: the open-to-close cash register sessions of a
// business during which orders and cash operations are recorded.
package cycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

// State enumerates the cycle lifecycle stages. A deleted cycle has no state; its record is gone.
type State string

const (
	StateOpenPending State = "OPEN_PENDING"
	StateActive      State = "ACTIVE"
	StateClosed      State = "CLOSED"
)

// Cycle is one economic cycle of a business.
type Cycle struct {
	ID            int64      `json:"id"`
	BusinessID    int64      `json:"businessId"`
	Name          string     `json:"name"`
	PriceSystemID int64      `json:"priceSystemId"`
	State         State      `json:"state"`
	Observations  string     `json:"observations,omitempty"`
	OpenedBy      int64      `json:"openedBy"`
	OpenedAt      time.Time  `json:"openedAt"`
	ClosedBy      *int64     `json:"closedBy,omitempty"`
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// OpenInput opens a new cycle for a business.
type OpenInput struct {
	BusinessID    int64
	PriceSystemID int64
	Name          string
	Observations  string
	Actor         shared.Actor
}

// Validate ensures the open input is coherent.
func (in OpenInput) Validate() error {
	if in.BusinessID <= 0 {
		return fmt.Errorf("%w: cycle: business id required", shared.ErrValidation)
	}
	if in.PriceSystemID <= 0 {
		return fmt.Errorf("%w: cycle: price system required", shared.ErrValidation)
	}
	if in.Actor.ID <= 0 {
		return fmt.Errorf("%w: cycle: actor required", shared.ErrValidation)
	}
	if len(strings.TrimSpace(in.Name)) > 120 {
		return fmt.Errorf("%w: cycle: name too long", shared.ErrValidation)
	}
	return nil
}

// EditInput changes the price system or descriptive fields of an active cycle. Nil fields
// are left as is.
type EditInput struct {
	CycleID       int64
	Name          *string
	Observations  *string
	PriceSystemID *int64
	Actor         shared.Actor
}

// CloseInput closes an active cycle.
type CloseInput struct {
	CycleID      int64
	Observations *string
	Actor        shared.Actor
}

// DeleteInput removes a closed cycle.
type DeleteInput struct {
	CycleID int64
	Actor   shared.Actor
}

// ConflictError is returned when a business already has an active cycle.
type ConflictError struct {
	BusinessID    int64
	ActiveCycleID int64
}

func (e *ConflictError) Error() string {
	if e.ActiveCycleID == 0 {
		return fmt.Sprintf("cycle: business %d already has an active cycle", e.BusinessID)
	}
	return fmt.Sprintf("cycle: business %d already has active cycle %d", e.BusinessID, e.ActiveCycleID)
}

func (e *ConflictError) Unwrap() error { return shared.ErrConflict }

// InvalidStateError is returned when an action is not allowed in the cycle's current state.
type InvalidStateError struct {
	CycleID int64
	State   State
	Action  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cycle: cannot %s cycle %d in state %s", e.Action, e.CycleID, e.State)
}

func (e *InvalidStateError) Unwrap() error { return shared.ErrInvalidState }

var (
	// ErrNotFound indicates the cycle does not exist.
	ErrNotFound = fmt.Errorf("cycle: %w", shared.ErrNotFound)
	// ErrForbidden indicates the actor lacks the privilege to delete cycles.
	ErrForbidden = fmt.Errorf("cycle: elevated privilege required: %w", shared.ErrForbidden)
	// ErrActorRequired indicates an anonymous mutation.
	ErrActorRequired = fmt.Errorf("%w: cycle: actor required", shared.ErrValidation)
	// ErrInvalidTransition indicates a state change outside the lifecycle.
	ErrInvalidTransition = errors.New("cycle: invalid state transition")
)
