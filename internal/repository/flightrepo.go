package repository

import (
	"context"

	"github.com/and161185/bagtrack/internal/model"
	"github.com/gofrs/uuid/v5"
)

// FlightRepository provides access to flights.
type FlightRepository interface {
	// Create inserts a flight; ErrConflict on a duplicate code pair or occupied gate.
	Create(ctx context.Context, f *model.Flight) error
	// GetByID loads a flight by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Flight, error)
	// Lock holds the flight row until the transaction ends; ErrNotFound if it is gone.
	Lock(ctx context.Context, id uuid.UUID) error
	// GetByCode loads a flight by airline code and flight number.
	GetByCode(ctx context.Context, airlineCode, flightNumber string) (*model.Flight, error)
	// GetByGate loads the flight occupying (terminal, gate).
	GetByGate(ctx context.Context, terminal, gate string) (*model.Flight, error)
	// List returns flights ordered by creation; empty airlineCode means all.
	List(ctx context.Context, airlineCode string) ([]model.Flight, error)
	// UpdateGate moves a flight; ErrConflict if the gate is occupied.
	UpdateGate(ctx context.Context, id uuid.UUID, terminal, gate string) error
	// Delete removes a flight row; callers remove passengers and bags first.
	Delete(ctx context.Context, id uuid.UUID) error
}
