package memory

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

// FlightRepo implements repository.FlightRepository.
type FlightRepo struct{ s *Store }

func byCreated[T any](m map[uuid.UUID]T, keep func(T) bool, key func(T) (int64, string)) []T {
	all := sortedValues(m, key)
	out := all[:0]
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func flightKey(f model.Flight) (int64, string) { return f.CreatedAt.UnixNano(), f.ID.String() }

func gateTaken(st *state, terminal, gate string, except uuid.UUID) bool {
	for _, f := range st.flights {
		if f.ID != except && f.Terminal == terminal && f.Gate == gate {
			return true
		}
	}
	return false
}

// Create inserts a flight.
func (r *FlightRepo) Create(ctx context.Context, f *model.Flight) error {
	return r.s.write(ctx, func(st *state) error {
		for _, o := range st.flights {
			if o.AirlineCode == f.AirlineCode && o.FlightNumber == f.FlightNumber {
				return fmt.Errorf("flight %s: %w", f.Code(), errs.ErrConflict)
			}
		}
		if gateTaken(st, f.Terminal, f.Gate, f.ID) {
			return fmt.Errorf("gate %s/%s: %w", f.Terminal, f.Gate, errs.ErrConflict)
		}
		st.flights[f.ID] = *f
		return nil
	})
}

// GetByID loads a flight.
func (r *FlightRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Flight, error) {
	var out *model.Flight
	err := r.s.read(ctx, func(st *state) error {
		f, ok := st.flights[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &f
		return nil
	})
	return out, err
}

// Lock only checks existence; see PassengerRepo.Lock.
func (r *FlightRepo) Lock(ctx context.Context, id uuid.UUID) error {
	return r.s.read(ctx, func(st *state) error {
		if _, ok := st.flights[id]; !ok {
			return fmt.Errorf("flight: %w", errs.ErrNotFound)
		}
		return nil
	})
}

// GetByCode loads a flight by its code pair.
func (r *FlightRepo) GetByCode(ctx context.Context, airlineCode, flightNumber string) (*model.Flight, error) {
	var out *model.Flight
	err := r.s.read(ctx, func(st *state) error {
		for _, f := range st.flights {
			if f.AirlineCode == airlineCode && f.FlightNumber == flightNumber {
				out = &f
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

// GetByGate loads the flight at (terminal, gate).
func (r *FlightRepo) GetByGate(ctx context.Context, terminal, gate string) (*model.Flight, error) {
	var out *model.Flight
	err := r.s.read(ctx, func(st *state) error {
		for _, f := range st.flights {
			if f.Terminal == terminal && f.Gate == gate {
				out = &f
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

// List returns flights, optionally for one airline.
func (r *FlightRepo) List(ctx context.Context, airlineCode string) ([]model.Flight, error) {
	var out []model.Flight
	err := r.s.read(ctx, func(st *state) error {
		out = byCreated(st.flights, func(f model.Flight) bool {
			return airlineCode == "" || f.AirlineCode == airlineCode
		}, flightKey)
		return nil
	})
	return out, err
}

// UpdateGate moves a flight to another gate.
func (r *FlightRepo) UpdateGate(ctx context.Context, id uuid.UUID, terminal, gate string) error {
	return r.s.write(ctx, func(st *state) error {
		f, ok := st.flights[id]
		if !ok {
			return errs.ErrNotFound
		}
		if gateTaken(st, terminal, gate, id) {
			return fmt.Errorf("gate %s/%s: %w", terminal, gate, errs.ErrConflict)
		}
		f.Terminal, f.Gate = terminal, gate
		st.flights[id] = f
		return nil
	})
}

// Delete removes a flight.
func (r *FlightRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.flights[id]; !ok {
			return errs.ErrNotFound
		}
		delete(st.flights, id)
		return nil
	})
}
