package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

// FlightRepo implements FlightRepository using PostgreSQL.
type FlightRepo struct{ db *DB }

// NewFlightRepo constructs a flight repository.
func NewFlightRepo(db *DB) *FlightRepo { return &FlightRepo{db: db} }

const flightCols = `id, airline_code, flight_number, airline_name, destination, terminal, gate, created_at`

func scanFlight(row pgx.Row) (model.Flight, error) {
	var f model.Flight
	err := row.Scan(&f.ID, &f.AirlineCode, &f.FlightNumber, &f.AirlineName, &f.Destination, &f.Terminal, &f.Gate, &f.CreatedAt)
	return f, err
}

func (r *FlightRepo) one(ctx context.Context, q string, args ...any) (*model.Flight, error) {
	f, err := scanFlight(r.db.conn(ctx).QueryRow(ctx, q, args...))
	if err != nil {
		return nil, mapErr(err, "flight")
	}
	return &f, nil
}

// Create inserts a flight row.
func (r *FlightRepo) Create(ctx context.Context, f *model.Flight) error {
	const q = `
INSERT INTO flights (id, airline_code, flight_number, airline_name, destination, terminal, gate, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.conn(ctx).Exec(ctx, q, f.ID, f.AirlineCode, f.FlightNumber, f.AirlineName, f.Destination, f.Terminal, f.Gate, f.CreatedAt)
	return mapErr(err, "flight "+f.Code())
}

// GetByID selects a flight by ID.
func (r *FlightRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Flight, error) {
	return r.one(ctx, `SELECT `+flightCols+` FROM flights WHERE id=$1`, id)
}

func (r *FlightRepo) Lock(ctx context.Context, id uuid.UUID) error {
	return r.db.lockRow(ctx, "flights", "flight", id)
}

// GetByCode selects a flight by its code pair.
func (r *FlightRepo) GetByCode(ctx context.Context, airlineCode, flightNumber string) (*model.Flight, error) {
	return r.one(ctx, `SELECT `+flightCols+` FROM flights WHERE airline_code=$1 AND flight_number=$2`, airlineCode, flightNumber)
}

// GetByGate selects the flight occupying a gate.
func (r *FlightRepo) GetByGate(ctx context.Context, terminal, gate string) (*model.Flight, error) {
	return r.one(ctx, `SELECT `+flightCols+` FROM flights WHERE terminal=$1 AND gate=$2`, terminal, gate)
}

// List selects flights, optionally for one airline.
func (r *FlightRepo) List(ctx context.Context, airlineCode string) ([]model.Flight, error) {
	const q = `SELECT ` + flightCols + ` FROM flights WHERE ($1 = '' OR airline_code = $1) ORDER BY created_at, id`
	rows, err := r.db.conn(ctx).Query(ctx, q, airlineCode)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows pgx.Rows) (model.Flight, error) { return scanFlight(rows) })
}

// UpdateGate moves a flight.
func (r *FlightRepo) UpdateGate(ctx context.Context, id uuid.UUID, terminal, gate string) error {
	const q = `UPDATE flights SET terminal=$2, gate=$3 WHERE id=$1`
	tag, err := r.db.conn(ctx).Exec(ctx, q, id, terminal, gate)
	if err != nil {
		return mapErr(err, "gate "+terminal+"/"+gate)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a flight row.
func (r *FlightRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
