// Package repository defines storage interfaces implemented by concrete backends.
package repository

import "context"

// Transactor runs fn atomically. Repository calls made with the context passed
// to fn join the transaction; if fn returns an error nothing it wrote is kept.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store groups the collections of one backend.
type Store struct {
	Tx         Transactor
	Flights    FlightRepository
	Passengers PassengerRepository
	Bags       BagRepository
	Staff      StaffRepository
	Admin      AdminRepository
	Messages   MessageRepository
	Issues     IssueRepository
	Sessions   SessionRepository
}
