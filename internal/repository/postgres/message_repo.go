package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

// MessageRepo implements MessageRepository using PostgreSQL.
type MessageRepo struct{ db *DB }

// NewMessageRepo constructs a message repository.
func NewMessageRepo(db *DB) *MessageRepo { return &MessageRepo{db: db} }

const messageCols = `id, board_type, sender_id, sender_name, sender_role, airline_code, message_type, flight_id, passenger_id, bag_id, content, created_at, resolved_at, resolved_by`

func scanMessage(row pgx.Row) (model.Message, error) {
	var (
		m                   model.Message
		flight, pass, bagID uuid.NullUUID
	)
	err := row.Scan(&m.ID, &m.BoardType, &m.SenderID, &m.SenderName, &m.SenderRole, &m.AirlineCode, &m.MessageType,
		&flight, &pass, &bagID, &m.Content, &m.CreatedAt, &m.ResolvedAt, &m.ResolvedBy)
	m.FlightID, m.PassengerID, m.BagID = flight.UUID, pass.UUID, bagID.UUID
	return m, err
}

// Create appends a message row.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	const q = `
INSERT INTO messages (id, board_type, sender_id, sender_name, sender_role, airline_code, message_type, flight_id, passenger_id, bag_id, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.conn(ctx).Exec(ctx, q, m.ID, string(m.BoardType), m.SenderID, m.SenderName, string(m.SenderRole),
		m.AirlineCode, string(m.MessageType), nullable(m.FlightID), nullable(m.PassengerID), nullable(m.BagID),
		m.Content, m.CreatedAt)
	return mapErr(err, "message")
}

// GetByID selects a message by ID.
func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	m, err := scanMessage(r.db.conn(ctx).QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr(err, "message")
	}
	return &m, nil
}

// ListByBoard selects a board newest first.
func (r *MessageRepo) ListByBoard(ctx context.Context, board model.BoardType) ([]model.Message, error) {
	const q = `SELECT ` + messageCols + ` FROM messages WHERE board_type=$1 ORDER BY created_at DESC, seq DESC`
	rows, err := r.db.conn(ctx).Query(ctx, q, string(board))
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows pgx.Rows) (model.Message, error) { return scanMessage(rows) })
}

// MarkResolved sets resolved_at once. A second call reports false.
func (r *MessageRepo) MarkResolved(ctx context.Context, id uuid.UUID, at time.Time, by string) (bool, error) {
	const q = `UPDATE messages SET resolved_at=$2, resolved_by=$3 WHERE id=$1 AND resolved_at IS NULL`
	c := r.db.conn(ctx)
	tag, err := c.Exec(ctx, q, id, at, by)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := c.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM messages WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, errs.ErrNotFound
	}
	return false, nil
}

// IssueRepo implements IssueRepository using PostgreSQL.
type IssueRepo struct{ db *DB }

// NewIssueRepo constructs an issue repository.
func NewIssueRepo(db *DB) *IssueRepo { return &IssueRepo{db: db} }

// Create appends an issue row.
func (r *IssueRepo) Create(ctx context.Context, i *model.Issue) error {
	const q = `
INSERT INTO issues (id, type, description, passenger_id, bag_id, reported_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.conn(ctx).Exec(ctx, q, i.ID, string(i.Type), i.Description, nullable(i.PassengerID), nullable(i.BagID),
		i.ReportedBy, i.CreatedAt)
	return mapErr(err, "issue")
}

// List selects issues newest first.
func (r *IssueRepo) List(ctx context.Context) ([]model.Issue, error) {
	const q = `
SELECT id, type, description, passenger_id, bag_id, reported_by, created_at
FROM issues ORDER BY created_at DESC, seq DESC`
	rows, err := r.db.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows pgx.Rows) (model.Issue, error) {
		var (
			i         model.Issue
			pass, bag uuid.NullUUID
		)
		err := rows.Scan(&i.ID, &i.Type, &i.Description, &pass, &bag, &i.ReportedBy, &i.CreatedAt)
		i.PassengerID, i.BagID = pass.UUID, bag.UUID
		return i, err
	})
}
