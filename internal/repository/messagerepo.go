package repository

import (
	"context"
	"time"

	"github.com/and161185/bagtrack/internal/model"
	"github.com/gofrs/uuid/v5"
)

// MessageRepository stores board messages. Messages are append-only apart
// from the one-shot resolution marker.
type MessageRepository interface {
	// Create appends a message.
	Create(ctx context.Context, m *model.Message) error
	// GetByID loads a message by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error)
	// ListByBoard returns a board's messages newest first.
	ListByBoard(ctx context.Context, board model.BoardType) ([]model.Message, error)
	// MarkResolved sets the resolution marker if unset. It reports false when
	// the message was already resolved.
	MarkResolved(ctx context.Context, id uuid.UUID, at time.Time, by string) (bool, error)
}

// IssueRepository stores the audit log.
type IssueRepository interface {
	// Create appends an issue.
	Create(ctx context.Context, i *model.Issue) error
	// List returns issues newest first.
	List(ctx context.Context) ([]model.Issue, error)
}
