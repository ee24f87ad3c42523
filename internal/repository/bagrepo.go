package repository

import (
	"context"

	"github.com/and161185/bagtrack/internal/model"
	"github.com/gofrs/uuid/v5"
)

// BagFilter narrows List; zero fields match everything.
type BagFilter struct {
	Location    model.BagLocation
	FlightID    uuid.UUID
	PassengerID uuid.UUID
}

// Match reports whether b satisfies the filter.
func (f BagFilter) Match(b model.Bag) bool {
	if f.Location != "" && b.Location != f.Location {
		return false
	}
	if f.FlightID != uuid.Nil && b.FlightID != f.FlightID {
		return false
	}
	if f.PassengerID != uuid.Nil && b.PassengerID != f.PassengerID {
		return false
	}
	return true
}

// BagRepository provides versioned access to bags and their location history.
type BagRepository interface {
	// Create inserts a bag with its seed history; ErrConflict on a duplicate bag code.
	Create(ctx context.Context, b *model.Bag) error
	// GetByID loads a bag by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Bag, error)
	// GetByCode loads a bag by its 6-digit display code.
	GetByCode(ctx context.Context, code string) (*model.Bag, error)
	// List returns bags matching the filter ordered by creation.
	List(ctx context.Context, f BagFilter) ([]model.Bag, error)
	// Update stores location, gate number and history if the stored version
	// equals b.Version, then bumps b.Version.
	Update(ctx context.Context, b *model.Bag) error
	// Delete removes a bag.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByPassenger removes the bags of a passenger and returns how many were removed.
	DeleteByPassenger(ctx context.Context, passengerID uuid.UUID) (int, error)
	// DeleteByFlight removes the bags tagged with a flight and returns how many were removed.
	DeleteByFlight(ctx context.Context, flightID uuid.UUID) (int, error)
}
