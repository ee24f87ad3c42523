package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/errs"
)

// PassengerStatus only ever advances: not_checked_in < checked_in < boarded.
type PassengerStatus string

const (
	PassengerNotCheckedIn PassengerStatus = "not_checked_in"
	PassengerCheckedIn    PassengerStatus = "checked_in"
	PassengerBoarded      PassengerStatus = "boarded"
)

// Rank orders statuses; unknown values rank -1.
func (s PassengerStatus) Rank() int {
	switch s {
	case PassengerNotCheckedIn:
		return 0
	case PassengerCheckedIn:
		return 1
	case PassengerBoarded:
		return 2
	}
	return -1
}

// Valid reports whether s is a known status.
func (s PassengerStatus) Valid() bool { return s.Rank() >= 0 }

// Passenger belongs to exactly one flight and owns its bags.
type Passenger struct {
	ID             uuid.UUID       `json:"id"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Identification string          `json:"identification"`
	TicketNumber   string          `json:"ticketNumber"`
	FlightID       uuid.UUID       `json:"flightId"`
	Status         PassengerStatus `json:"status"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// FullName returns "First Last".
func (p Passenger) FullName() string { return p.FirstName + " " + p.LastName }

// CheckPassengerTransition validates the single forward edge from -> to.
func CheckPassengerTransition(from, to PassengerStatus) error {
	switch {
	case from == PassengerNotCheckedIn && to == PassengerCheckedIn:
		return nil
	case from == PassengerCheckedIn && to == PassengerBoarded:
		return nil
	case from == PassengerBoarded:
		return fmt.Errorf("passenger already boarded: %w", errs.ErrInvalidState)
	case from == PassengerCheckedIn && to == PassengerCheckedIn:
		return fmt.Errorf("passenger already checked in: %w", errs.ErrInvalidState)
	case from == PassengerNotCheckedIn && to == PassengerBoarded:
		return fmt.Errorf("passenger not checked in: %w", errs.ErrInvalidState)
	default:
		return fmt.Errorf("passenger %s -> %s: %w", from, to, errs.ErrInvalidState)
	}
}

// Advance moves the passenger to status to, validating the edge.
func (p *Passenger) Advance(to PassengerStatus) error {
	if err := CheckPassengerTransition(p.Status, to); err != nil {
		return err
	}
	p.Status = to
	return nil
}

// NewPassenger is the admin input for creating a passenger.
type NewPassenger struct {
	FirstName      string
	LastName       string
	Identification string
	TicketNumber   string
	FlightID       uuid.UUID
}

// Validate checks the passenger fields.
func (n NewPassenger) Validate() error {
	if err := ValidateName("first name", n.FirstName); err != nil {
		return err
	}
	if err := ValidateName("last name", n.LastName); err != nil {
		return err
	}
	if err := ValidateIdentification(n.Identification); err != nil {
		return err
	}
	if err := ValidateTicketNumber(n.TicketNumber); err != nil {
		return err
	}
	if n.FlightID == uuid.Nil {
		return fmt.Errorf("flight is required: %w", errs.ErrValidation)
	}
	return nil
}

// BagDeclaration is one entry of a check-in manifest.
type BagDeclaration struct {
	CounterNumber string
}
