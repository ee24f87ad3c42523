package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

// BagRepo implements BagRepository using PostgreSQL. Location history is
// stored as a jsonb array on the bag row.
type BagRepo struct{ db *DB }

// NewBagRepo constructs a bag repository.
func NewBagRepo(db *DB) *BagRepo { return &BagRepo{db: db} }

const bagCols = `id, bag_code, passenger_id, flight_id, location, terminal, counter_number, gate_number, location_history, ver, created_at, updated_at`

func scanBag(row pgx.Row) (model.Bag, error) {
	var (
		b    model.Bag
		hist []byte
	)
	err := row.Scan(&b.ID, &b.BagID, &b.PassengerID, &b.FlightID, &b.Location, &b.Terminal,
		&b.CounterNumber, &b.GateNumber, &hist, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(hist, &b.LocationHistory); err != nil {
		return b, fmt.Errorf("decode history of bag %s: %w", b.BagID, err)
	}
	return b, nil
}

// Create inserts a bag at version 1.
func (r *BagRepo) Create(ctx context.Context, b *model.Bag) error {
	const q = `
INSERT INTO bags (id, bag_code, passenger_id, flight_id, location, terminal, counter_number, gate_number, location_history, ver, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)`
	hist, err := json.Marshal(b.LocationHistory)
	if err != nil {
		return err
	}
	_, err = r.db.conn(ctx).Exec(ctx, q, b.ID, b.BagID, b.PassengerID, b.FlightID, string(b.Location), b.Terminal,
		b.CounterNumber, b.GateNumber, hist, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return mapErr(err, "bag code "+b.BagID)
	}
	b.Version = 1
	return nil
}

// GetByID selects a bag by ID.
func (r *BagRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Bag, error) {
	b, err := scanBag(r.db.conn(ctx).QueryRow(ctx, `SELECT `+bagCols+` FROM bags WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr(err, "bag")
	}
	return &b, nil
}

// GetByCode selects a bag by display code.
func (r *BagRepo) GetByCode(ctx context.Context, code string) (*model.Bag, error) {
	b, err := scanBag(r.db.conn(ctx).QueryRow(ctx, `SELECT `+bagCols+` FROM bags WHERE bag_code=$1`, code))
	if err != nil {
		return nil, mapErr(err, "bag "+code)
	}
	return &b, nil
}

// List selects bags matching f.
func (r *BagRepo) List(ctx context.Context, f repository.BagFilter) ([]model.Bag, error) {
	const q = `
SELECT ` + bagCols + `
FROM bags
WHERE ($1 = '' OR location = $1)
  AND ($2::uuid IS NULL OR flight_id = $2)
  AND ($3::uuid IS NULL OR passenger_id = $3)
ORDER BY created_at, id`
	rows, err := r.db.conn(ctx).Query(ctx, q, string(f.Location), nullable(f.FlightID), nullable(f.PassengerID))
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows pgx.Rows) (model.Bag, error) { return scanBag(rows) })
}

// Update locks the row, checks b.Version and writes the movable fields.
func (r *BagRepo) Update(ctx context.Context, b *model.Bag) error {
	const sel = `SELECT ver FROM bags WHERE id=$1 FOR UPDATE`
	const upd = `UPDATE bags SET location=$2, gate_number=$3, location_history=$4, updated_at=$5, ver=$6 WHERE id=$1`

	c := r.db.conn(ctx)
	var cur int64
	if err := c.QueryRow(ctx, sel, b.ID).Scan(&cur); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	if cur != b.Version {
		return fmt.Errorf("bag %s: %w", b.BagID, errs.ErrVersionConflict)
	}
	hist, err := json.Marshal(b.LocationHistory)
	if err != nil {
		return err
	}
	next := cur + 1
	if _, err := c.Exec(ctx, upd, b.ID, string(b.Location), b.GateNumber, hist, b.UpdatedAt, next); err != nil {
		return err
	}
	b.Version = next
	return nil
}

// Delete removes a bag.
func (r *BagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM bags WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteByPassenger removes a passenger's bags.
func (r *BagRepo) DeleteByPassenger(ctx context.Context, passengerID uuid.UUID) (int, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM bags WHERE passenger_id=$1`, passengerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteByFlight removes the bags of a flight.
func (r *BagRepo) DeleteByFlight(ctx context.Context, flightID uuid.UUID) (int, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM bags WHERE flight_id=$1`, flightID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// nullable maps uuid.Nil to SQL NULL.
func nullable(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
