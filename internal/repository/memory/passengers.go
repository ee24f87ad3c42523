package memory

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

// PassengerRepo implements repository.PassengerRepository.
type PassengerRepo struct{ s *Store }

func passengerKey(p model.Passenger) (int64, string) { return p.CreatedAt.UnixNano(), p.ID.String() }

// Create inserts a passenger at version 1.
func (r *PassengerRepo) Create(ctx context.Context, p *model.Passenger) error {
	return r.s.write(ctx, func(st *state) error {
		for _, o := range st.passengers {
			if o.TicketNumber == p.TicketNumber {
				return fmt.Errorf("ticket %s: %w", p.TicketNumber, errs.ErrConflict)
			}
		}
		p.Version = 1
		st.passengers[p.ID] = *p
		return nil
	})
}

// GetByID loads a passenger.
func (r *PassengerRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Passenger, error) {
	var out *model.Passenger
	err := r.s.read(ctx, func(st *state) error {
		p, ok := st.passengers[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

// Lock only checks existence; the store mutex already serializes transactions.
func (r *PassengerRepo) Lock(ctx context.Context, id uuid.UUID) error {
	return r.s.read(ctx, func(st *state) error {
		if _, ok := st.passengers[id]; !ok {
			return fmt.Errorf("passenger: %w", errs.ErrNotFound)
		}
		return nil
	})
}

// GetByTicket loads a passenger by ticket number.
func (r *PassengerRepo) GetByTicket(ctx context.Context, ticket string) (*model.Passenger, error) {
	var out *model.Passenger
	err := r.s.read(ctx, func(st *state) error {
		for _, p := range st.passengers {
			if p.TicketNumber == ticket {
				out = &p
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

// ListByFlight returns the passengers of a flight.
func (r *PassengerRepo) ListByFlight(ctx context.Context, flightID uuid.UUID) ([]model.Passenger, error) {
	var out []model.Passenger
	err := r.s.read(ctx, func(st *state) error {
		out = byCreated(st.passengers, func(p model.Passenger) bool { return p.FlightID == flightID }, passengerKey)
		return nil
	})
	return out, err
}

// UpdateStatus sets the status when baseVer matches.
func (r *PassengerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PassengerStatus, baseVer int64) (int64, error) {
	var ver int64
	err := r.s.write(ctx, func(st *state) error {
		p, ok := st.passengers[id]
		if !ok {
			return errs.ErrNotFound
		}
		if p.Version != baseVer {
			return errs.ErrVersionConflict
		}
		p.Status = status
		p.Version++
		st.passengers[id] = p
		ver = p.Version
		return nil
	})
	return ver, err
}

// Delete removes a passenger.
func (r *PassengerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.passengers[id]; !ok {
			return errs.ErrNotFound
		}
		delete(st.passengers, id)
		return nil
	})
}

// DeleteByFlight removes every passenger of a flight.
func (r *PassengerRepo) DeleteByFlight(ctx context.Context, flightID uuid.UUID) (int, error) {
	n := 0
	err := r.s.write(ctx, func(st *state) error {
		for id, p := range st.passengers {
			if p.FlightID == flightID {
				delete(st.passengers, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
