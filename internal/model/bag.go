package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/errs"
)

// BagLocation is a node of the bag transition graph.
type BagLocation string

const (
	BagCheckIn           BagLocation = "check_in"
	BagSecurity          BagLocation = "security"
	BagSecurityViolation BagLocation = "security_violation"
	BagGate              BagLocation = "gate"
	BagLoaded            BagLocation = "loaded"
)

// bagEdges is the complete transition table. security_violation and loaded are terminal.
var bagEdges = map[BagLocation][]BagLocation{
	BagCheckIn:  {BagSecurity},
	BagSecurity: {BagGate, BagSecurityViolation},
	BagGate:     {BagLoaded},
}

// Valid reports whether l is a known location.
func (l BagLocation) Valid() bool {
	switch l {
	case BagCheckIn, BagSecurity, BagSecurityViolation, BagGate, BagLoaded:
		return true
	}
	return false
}

// CanMoveBag reports whether from -> to is an edge of the transition graph.
func CanMoveBag(from, to BagLocation) bool {
	for _, next := range bagEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LocationEntry is one element of a bag's append-only location history.
type LocationEntry struct {
	Location  BagLocation `json:"location"`
	Timestamp time.Time   `json:"timestamp"`
	UpdatedBy string      `json:"updatedBy,omitempty"`
}

// Bag is a piece of checked luggage owned by a passenger.
type Bag struct {
	ID              uuid.UUID       `json:"id"`
	BagID           string          `json:"bagId"` // 6-digit display code
	PassengerID     uuid.UUID       `json:"passengerId"`
	FlightID        uuid.UUID       `json:"flightId"`
	Location        BagLocation     `json:"location"`
	Terminal        string          `json:"terminal"`
	CounterNumber   string          `json:"counterNumber,omitempty"`
	GateNumber      string          `json:"gateNumber,omitempty"`
	LocationHistory []LocationEntry `json:"locationHistory"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewCheckedBag builds a bag at check_in with its seeding history entry.
func NewCheckedBag(id uuid.UUID, code string, p Passenger, f Flight, counter, actor string, at time.Time) Bag {
	return Bag{
		ID:              id,
		BagID:           code,
		PassengerID:     p.ID,
		FlightID:        f.ID,
		Location:        BagCheckIn,
		Terminal:        f.Terminal,
		CounterNumber:   counter,
		LocationHistory: []LocationEntry{{Location: BagCheckIn, Timestamp: at, UpdatedBy: actor}},
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

// MoveTo applies a transition and appends exactly one history entry.
func (b *Bag) MoveTo(to BagLocation, actor string, at time.Time) error {
	if !CanMoveBag(b.Location, to) {
		return fmt.Errorf("bag %s cannot move %s -> %s: %w", b.BagID, b.Location, to, errs.ErrInvalidState)
	}
	b.Location = to
	b.UpdatedAt = at
	b.LocationHistory = append(b.LocationHistory, LocationEntry{Location: to, Timestamp: at, UpdatedBy: actor})
	return nil
}

// Clone returns a copy that does not share the history slice.
func (b Bag) Clone() Bag {
	b.LocationHistory = append([]LocationEntry(nil), b.LocationHistory...)
	return b
}
