package repository

import (
	"context"

	"github.com/and161185/bagtrack/internal/model"
	"github.com/gofrs/uuid/v5"
)

// StaffRepository provides CRUD access for staff accounts.
type StaffRepository interface {
	// Create inserts a staff account; ErrConflict if the username is taken.
	Create(ctx context.Context, s *model.Staff) error
	// GetByID loads a staff account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Staff, error)
	// GetByUsername loads a staff account by username.
	GetByUsername(ctx context.Context, username string) (*model.Staff, error)
	// List returns staff ordered by creation; empty staffType means all.
	List(ctx context.Context, staffType model.StaffType) ([]model.Staff, error)
	// SetPassword stores a new hash and clears RequiresPasswordChange.
	SetPassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error
	// Delete removes a staff account.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AdminRepository stores the singleton administrator.
type AdminRepository interface {
	// Get loads the administrator; ErrNotFound before seeding.
	Get(ctx context.Context) (*model.Administrator, error)
	// Create stores the administrator; ErrConflict if one exists.
	Create(ctx context.Context, a *model.Administrator) error
	// SetPassword stores a new hash and clears RequiresPasswordChange.
	SetPassword(ctx context.Context, hash, salt []byte) error
}

// SessionRepository stores issued sessions.
type SessionRepository interface {
	// Create stores a session.
	Create(ctx context.Context, s *model.Session) error
	// Get loads a session by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	// Delete removes a session; missing sessions are not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}
