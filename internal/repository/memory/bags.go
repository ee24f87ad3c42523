package memory

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

// BagRepo implements repository.BagRepository.
type BagRepo struct{ s *Store }

func bagKey(b model.Bag) (int64, string) { return b.CreatedAt.UnixNano(), b.ID.String() }

// Create inserts a bag at version 1.
func (r *BagRepo) Create(ctx context.Context, b *model.Bag) error {
	return r.s.write(ctx, func(st *state) error {
		for _, o := range st.bags {
			if o.BagID == b.BagID {
				return fmt.Errorf("bag code %s: %w", b.BagID, errs.ErrConflict)
			}
		}
		b.Version = 1
		st.bags[b.ID] = b.Clone()
		return nil
	})
}

// GetByID loads a bag.
func (r *BagRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Bag, error) {
	var out *model.Bag
	err := r.s.read(ctx, func(st *state) error {
		b, ok := st.bags[id]
		if !ok {
			return errs.ErrNotFound
		}
		b = b.Clone()
		out = &b
		return nil
	})
	return out, err
}

// GetByCode loads a bag by display code.
func (r *BagRepo) GetByCode(ctx context.Context, code string) (*model.Bag, error) {
	var out *model.Bag
	err := r.s.read(ctx, func(st *state) error {
		for _, b := range st.bags {
			if b.BagID == code {
				b = b.Clone()
				out = &b
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

// List returns bags matching f.
func (r *BagRepo) List(ctx context.Context, f repository.BagFilter) ([]model.Bag, error) {
	var out []model.Bag
	err := r.s.read(ctx, func(st *state) error {
		out = byCreated(st.bags, f.Match, bagKey)
		for i := range out {
			out[i] = out[i].Clone()
		}
		return nil
	})
	return out, err
}

// Update stores the mutable bag fields when the version matches.
func (r *BagRepo) Update(ctx context.Context, b *model.Bag) error {
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.bags[b.ID]
		if !ok {
			return errs.ErrNotFound
		}
		if cur.Version != b.Version {
			return errs.ErrVersionConflict
		}
		cur.Location = b.Location
		cur.GateNumber = b.GateNumber
		cur.LocationHistory = append([]model.LocationEntry(nil), b.LocationHistory...)
		cur.UpdatedAt = b.UpdatedAt
		cur.Version++
		st.bags[b.ID] = cur
		b.Version = cur.Version
		return nil
	})
}

// Delete removes a bag.
func (r *BagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.bags[id]; !ok {
			return errs.ErrNotFound
		}
		delete(st.bags, id)
		return nil
	})
}

func (r *BagRepo) deleteWhere(ctx context.Context, match func(model.Bag) bool) (int, error) {
	n := 0
	err := r.s.write(ctx, func(st *state) error {
		for id, b := range st.bags {
			if match(b) {
				delete(st.bags, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// DeleteByPassenger removes a passenger's bags.
func (r *BagRepo) DeleteByPassenger(ctx context.Context, passengerID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, func(b model.Bag) bool { return b.PassengerID == passengerID })
}

// DeleteByFlight removes the bags of a flight.
func (r *BagRepo) DeleteByFlight(ctx context.Context, flightID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, func(b model.Bag) bool { return b.FlightID == flightID })
}
