package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

// StaffRepo implements StaffRepository using PostgreSQL.
type StaffRepo struct{ db *DB }

// NewStaffRepo constructs a staff repository.
func NewStaffRepo(db *DB) *StaffRepo { return &StaffRepo{db: db} }

const staffCols = `id, username, pwd_hash, salt, first_name, last_name, email, phone, staff_type, airline_code, requires_password_change, created_at`

func scanStaff(row pgx.Row) (model.Staff, error) {
	var s model.Staff
	err := row.Scan(&s.ID, &s.Username, &s.PwdHash, &s.Salt, &s.FirstName, &s.LastName, &s.Email, &s.Phone,
		&s.StaffType, &s.AirlineCode, &s.RequiresPasswordChange, &s.CreatedAt)
	return s, err
}

// Create inserts a staff row.
func (r *StaffRepo) Create(ctx context.Context, s *model.Staff) error {
	const q = `
INSERT INTO staff (id, username, pwd_hash, salt, first_name, last_name, email, phone, staff_type, airline_code, requires_password_change, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.conn(ctx).Exec(ctx, q, s.ID, s.Username, s.PwdHash, s.Salt, s.FirstName, s.LastName, s.Email, s.Phone,
		string(s.StaffType), s.AirlineCode, s.RequiresPasswordChange, s.CreatedAt)
	return mapErr(err, "username "+s.Username)
}

// GetByID selects a staff account by ID.
func (r *StaffRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	s, err := scanStaff(r.db.conn(ctx).QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr(err, "staff")
	}
	return &s, nil
}

// GetByUsername selects a staff account by username.
func (r *StaffRepo) GetByUsername(ctx context.Context, username string) (*model.Staff, error) {
	s, err := scanStaff(r.db.conn(ctx).QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE username=$1`, username))
	if err != nil {
		return nil, mapErr(err, "staff")
	}
	return &s, nil
}

// List selects staff accounts, optionally of one type.
func (r *StaffRepo) List(ctx context.Context, staffType model.StaffType) ([]model.Staff, error) {
	const q = `SELECT ` + staffCols + ` FROM staff WHERE ($1 = '' OR staff_type = $1) ORDER BY created_at, id`
	rows, err := r.db.conn(ctx).Query(ctx, q, string(staffType))
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows pgx.Rows) (model.Staff, error) { return scanStaff(rows) })
}

// SetPassword stores a new hash and clears the rotation flag.
func (r *StaffRepo) SetPassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	const q = `UPDATE staff SET pwd_hash=$2, salt=$3, requires_password_change=false WHERE id=$1`
	tag, err := r.db.conn(ctx).Exec(ctx, q, id, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a staff row.
func (r *StaffRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM staff WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AdminRepo implements AdminRepository using PostgreSQL.
type AdminRepo struct{ db *DB }

// NewAdminRepo constructs an administrator repository.
func NewAdminRepo(db *DB) *AdminRepo { return &AdminRepo{db: db} }

// Get selects the administrator.
func (r *AdminRepo) Get(ctx context.Context) (*model.Administrator, error) {
	const q = `
SELECT id, username, pwd_hash, salt, first_name, last_name, requires_password_change, created_at
FROM administrators WHERE singleton`
	var a model.Administrator
	err := r.db.conn(ctx).QueryRow(ctx, q).Scan(&a.ID, &a.Username, &a.PwdHash, &a.Salt, &a.FirstName, &a.LastName,
		&a.RequiresPasswordChange, &a.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "administrator")
	}
	return &a, nil
}

// Create inserts the administrator row.
func (r *AdminRepo) Create(ctx context.Context, a *model.Administrator) error {
	const q = `
INSERT INTO administrators (id, username, pwd_hash, salt, first_name, last_name, requires_password_change, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.conn(ctx).Exec(ctx, q, a.ID, a.Username, a.PwdHash, a.Salt, a.FirstName, a.LastName,
		a.RequiresPasswordChange, a.CreatedAt)
	return mapErr(err, "administrator")
}

// SetPassword stores a new administrator hash and clears the rotation flag.
func (r *AdminRepo) SetPassword(ctx context.Context, hash, salt []byte) error {
	const q = `UPDATE administrators SET pwd_hash=$1, salt=$2, requires_password_change=false WHERE singleton`
	tag, err := r.db.conn(ctx).Exec(ctx, q, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (id, user_id, role, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.conn(ctx).Exec(ctx, q, s.ID, s.UserID, string(s.Role), s.ExpiresAt, s.CreatedAt)
	return mapErr(err, "session")
}

// Get selects a session by ID.
func (r *SessionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	const q = `SELECT id, user_id, role, expires_at, created_at FROM sessions WHERE id=$1`
	var s model.Session
	if err := r.db.conn(ctx).QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.Role, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return nil, mapErr(err, "session")
	}
	return &s, nil
}

// Delete removes a session row.
func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	return err
}
