package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

// PassengerRepo implements PassengerRepository using PostgreSQL.
type PassengerRepo struct{ db *DB }

// NewPassengerRepo constructs a passenger repository.
func NewPassengerRepo(db *DB) *PassengerRepo { return &PassengerRepo{db: db} }

const passengerCols = `id, first_name, last_name, identification, ticket_number, flight_id, status, ver, created_at`

func scanPassenger(row pgx.Row) (model.Passenger, error) {
	var p model.Passenger
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Identification, &p.TicketNumber, &p.FlightID, &p.Status, &p.Version, &p.CreatedAt)
	return p, err
}

// Create inserts a passenger at version 1.
func (r *PassengerRepo) Create(ctx context.Context, p *model.Passenger) error {
	const q = `
INSERT INTO passengers (id, first_name, last_name, identification, ticket_number, flight_id, status, ver, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8)`
	_, err := r.db.conn(ctx).Exec(ctx, q, p.ID, p.FirstName, p.LastName, p.Identification, p.TicketNumber, p.FlightID, string(p.Status), p.CreatedAt)
	if err != nil {
		return mapErr(err, "ticket "+p.TicketNumber)
	}
	p.Version = 1
	return nil
}

// GetByID selects a passenger by ID.
func (r *PassengerRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Passenger, error) {
	p, err := scanPassenger(r.db.conn(ctx).QueryRow(ctx, `SELECT `+passengerCols+` FROM passengers WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr(err, "passenger")
	}
	return &p, nil
}

// GetByTicket selects a passenger by ticket number.
func (r *PassengerRepo) GetByTicket(ctx context.Context, ticket string) (*model.Passenger, error) {
	p, err := scanPassenger(r.db.conn(ctx).QueryRow(ctx, `SELECT `+passengerCols+` FROM passengers WHERE ticket_number=$1`, ticket))
	if err != nil {
		return nil, mapErr(err, "passenger")
	}
	return &p, nil
}

// ListByFlight selects the passengers of a flight.
func (r *PassengerRepo) ListByFlight(ctx context.Context, flightID uuid.UUID) ([]model.Passenger, error) {
	const q = `SELECT ` + passengerCols + ` FROM passengers WHERE flight_id=$1 ORDER BY created_at, id`
	rows, err := r.db.conn(ctx).Query(ctx, q, flightID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows pgx.Rows) (model.Passenger, error) { return scanPassenger(rows) })
}

// Lock takes the passenger row lock.
func (r *PassengerRepo) Lock(ctx context.Context, id uuid.UUID) error {
	return r.db.lockRow(ctx, "passengers", "passenger", id)
}

// UpdateStatus locks the row, checks the version and bumps it.
func (r *PassengerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PassengerStatus, baseVer int64) (int64, error) {
	const sel = `SELECT ver FROM passengers WHERE id=$1 FOR UPDATE`
	const upd = `UPDATE passengers SET status=$2, ver=$3 WHERE id=$1`

	c := r.db.conn(ctx)
	var cur int64
	if err := c.QueryRow(ctx, sel, id).Scan(&cur); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	if cur != baseVer {
		return 0, errs.ErrVersionConflict
	}
	next := cur + 1
	if _, err := c.Exec(ctx, upd, id, string(status), next); err != nil {
		return 0, err
	}
	return next, nil
}

// Delete removes a passenger row.
func (r *PassengerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM passengers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteByFlight removes every passenger of a flight.
func (r *PassengerRepo) DeleteByFlight(ctx context.Context, flightID uuid.UUID) (int, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM passengers WHERE flight_id=$1`, flightID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
