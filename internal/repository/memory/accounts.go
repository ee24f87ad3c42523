package memory

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

// StaffRepo implements repository.StaffRepository.
type StaffRepo struct{ s *Store }

// Create inserts a staff account.
func (r *StaffRepo) Create(ctx context.Context, s *model.Staff) error {
	return r.s.write(ctx, func(st *state) error {
		for _, o := range st.staff {
			if o.Username == s.Username {
				return fmt.Errorf("username %s: %w", s.Username, errs.ErrConflict)
			}
		}
		if st.admin != nil && st.admin.Username == s.Username {
			return fmt.Errorf("username %s: %w", s.Username, errs.ErrConflict)
		}
		st.staff[s.ID] = *s
		return nil
	})
}

// GetByID loads a staff account.
func (r *StaffRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	var out *model.Staff
	err := r.s.read(ctx, func(st *state) error {
		s, ok := st.staff[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

// GetByUsername loads a staff account by username.
func (r *StaffRepo) GetByUsername(ctx context.Context, username string) (*model.Staff, error) {
	var out *model.Staff
	err := r.s.read(ctx, func(st *state) error {
		for _, s := range st.staff {
			if s.Username == username {
				out = &s
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

// List returns staff accounts, optionally of one type.
func (r *StaffRepo) List(ctx context.Context, staffType model.StaffType) ([]model.Staff, error) {
	var out []model.Staff
	err := r.s.read(ctx, func(st *state) error {
		out = byCreated(st.staff, func(s model.Staff) bool {
			return staffType == "" || s.StaffType == staffType
		}, func(s model.Staff) (int64, string) { return s.CreatedAt.UnixNano(), s.ID.String() })
		return nil
	})
	return out, err
}

// SetPassword replaces the password hash.
func (r *StaffRepo) SetPassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	return r.s.write(ctx, func(st *state) error {
		s, ok := st.staff[id]
		if !ok {
			return errs.ErrNotFound
		}
		s.PwdHash, s.Salt, s.RequiresPasswordChange = hash, salt, false
		st.staff[id] = s
		return nil
	})
}

// Delete removes a staff account.
func (r *StaffRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.staff[id]; !ok {
			return errs.ErrNotFound
		}
		delete(st.staff, id)
		return nil
	})
}

// AdminRepo implements repository.AdminRepository.
type AdminRepo struct{ s *Store }

// Get loads the administrator.
func (r *AdminRepo) Get(ctx context.Context) (*model.Administrator, error) {
	var out *model.Administrator
	err := r.s.read(ctx, func(st *state) error {
		if st.admin == nil {
			return errs.ErrNotFound
		}
		a := *st.admin
		out = &a
		return nil
	})
	return out, err
}

// Create stores the administrator once.
func (r *AdminRepo) Create(ctx context.Context, a *model.Administrator) error {
	return r.s.write(ctx, func(st *state) error {
		if st.admin != nil {
			return fmt.Errorf("administrator: %w", errs.ErrConflict)
		}
		cp := *a
		st.admin = &cp
		return nil
	})
}

// SetPassword replaces the administrator password hash.
func (r *AdminRepo) SetPassword(ctx context.Context, hash, salt []byte) error {
	return r.s.write(ctx, func(st *state) error {
		if st.admin == nil {
			return errs.ErrNotFound
		}
		a := *st.admin
		a.PwdHash, a.Salt, a.RequiresPasswordChange = hash, salt, false
		st.admin = &a
		return nil
	})
}

// SessionRepo implements repository.SessionRepository.
type SessionRepo struct{ s *Store }

// Create stores a session.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	return r.s.write(ctx, func(st *state) error {
		st.sessions[s.ID] = *s
		return nil
	})
}

// Get loads a session.
func (r *SessionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var out *model.Session
	err := r.s.read(ctx, func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

// Delete removes a session.
func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		delete(st.sessions, id)
		return nil
	})
}
