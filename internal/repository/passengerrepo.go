package repository

import (
	"context"

	"github.com/and161185/bagtrack/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PassengerRepository provides versioned access to passengers.
type PassengerRepository interface {
	// Create inserts a passenger; ErrConflict on a duplicate ticket number.
	Create(ctx context.Context, p *model.Passenger) error
	// GetByID loads a passenger by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Passenger, error)
	// GetByTicket loads a passenger by ticket number.
	GetByTicket(ctx context.Context, ticket string) (*model.Passenger, error)
	// ListByFlight returns the passengers of a flight.
	ListByFlight(ctx context.Context, flightID uuid.UUID) ([]model.Passenger, error)
	// Lock holds the passenger row until the transaction ends; ErrNotFound if it is gone.
	Lock(ctx context.Context, id uuid.UUID) error
	// UpdateStatus sets status if the stored version equals baseVer and returns the new version.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PassengerStatus, baseVer int64) (int64, error)
	// Delete removes a passenger row.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByFlight removes every passenger of a flight and returns how many were removed.
	DeleteByFlight(ctx context.Context, flightID uuid.UUID) (int, error)
}
