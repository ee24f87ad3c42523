package memory

import (
	"context"
	"sort"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

// MessageRepo implements repository.MessageRepository.
type MessageRepo struct{ s *Store }

// Create appends a message.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	return r.s.write(ctx, func(st *state) error {
		st.messages = append(st.messages, *m)
		return nil
	})
}

// GetByID loads a message.
func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var out *model.Message
	err := r.s.read(ctx, func(st *state) error {
		for _, m := range st.messages {
			if m.ID == id {
				out = &m
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

// ListByBoard returns a board newest first; equal timestamps keep reverse insertion order.
func (r *MessageRepo) ListByBoard(ctx context.Context, board model.BoardType) ([]model.Message, error) {
	var out []model.Message
	err := r.s.read(ctx, func(st *state) error {
		for i := len(st.messages) - 1; i >= 0; i-- {
			if st.messages[i].BoardType == board {
				out = append(out, st.messages[i])
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

// MarkResolved sets the resolution marker once.
func (r *MessageRepo) MarkResolved(ctx context.Context, id uuid.UUID, at time.Time, by string) (bool, error) {
	changed := false
	err := r.s.write(ctx, func(st *state) error {
		for i := range st.messages {
			if st.messages[i].ID != id {
				continue
			}
			if st.messages[i].ResolvedAt != nil {
				return nil
			}
			ts := at
			st.messages[i].ResolvedAt = &ts
			st.messages[i].ResolvedBy = by
			changed = true
			return nil
		}
		return errs.ErrNotFound
	})
	return changed, err
}

// IssueRepo implements repository.IssueRepository.
type IssueRepo struct{ s *Store }

// Create appends an issue.
func (r *IssueRepo) Create(ctx context.Context, i *model.Issue) error {
	return r.s.write(ctx, func(st *state) error {
		st.issues = append(st.issues, *i)
		return nil
	})
}

// List returns issues newest first.
func (r *IssueRepo) List(ctx context.Context) ([]model.Issue, error) {
	var out []model.Issue
	err := r.s.read(ctx, func(st *state) error {
		for i := len(st.issues) - 1; i >= 0; i-- {
			out = append(out, st.issues[i])
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}
