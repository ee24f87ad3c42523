// Package service implements the passenger, bag, flight, escalation and
// identity workflows on top of the repository interfaces.
package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

// base carries the dependencies shared by every service.
type base struct {
	store repository.Store
	log   *zap.Logger
	m     *metrics.Metrics
	now   func() time.Time
}

func newBase(store repository.Store, log *zap.Logger, m *metrics.Metrics) base {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return base{store: store, log: log, m: m, now: func() time.Time { return time.Now().UTC() }}
}

func (b base) tx(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.store.Tx.WithinTransaction(ctx, fn)
}

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

// Role guards. A nil principal is unauthenticated; any other mismatch is forbidden.

func requireAdmin(p model.Principal) (model.AdminUser, error) {
	u, ok := p.(model.AdminUser)
	if !ok {
		return u, roleErr(p, model.RoleAdministrator)
	}
	return u, nil
}

func requireAirlineStaff(p model.Principal) (model.AirlineStaffUser, error) {
	u, ok := p.(model.AirlineStaffUser)
	if !ok {
		return u, roleErr(p, model.RoleAirlineStaff)
	}
	return u, nil
}

func requireGateStaff(p model.Principal) (model.GateStaffUser, error) {
	u, ok := p.(model.GateStaffUser)
	if !ok {
		return u, roleErr(p, model.RoleGateStaff)
	}
	return u, nil
}

func requireGroundStaff(p model.Principal) (model.GroundStaffUser, error) {
	u, ok := p.(model.GroundStaffUser)
	if !ok {
		return u, roleErr(p, model.RoleGroundStaff)
	}
	return u, nil
}

// requireStaff admits the administrator and every staff role.
func requireStaff(p model.Principal) error {
	switch p.(type) {
	case model.AdminUser, model.AirlineStaffUser, model.GateStaffUser, model.GroundStaffUser:
		return nil
	case nil:
		return errs.ErrUnauthorized
	}
	return fmt.Errorf("staff only: %w", errs.ErrForbidden)
}

func roleErr(p model.Principal, want model.Role) error {
	if p == nil {
		return errs.ErrUnauthorized
	}
	return fmt.Errorf("%s cannot perform this operation, requires %s: %w", p.Role(), want, errs.ErrForbidden)
}

// checkAirline enforces the airline scope of airline and gate staff.
func checkAirline(scope string, f *model.Flight) error {
	if scope != f.AirlineCode {
		return fmt.Errorf("flight %s belongs to airline %s, not %s: %w", f.Code(), f.AirlineCode, scope, errs.ErrForbidden)
	}
	return nil
}

// validateContent enforces the message length bounds.
func validateContent(content string) error {
	if err := model.Required("content", content); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(content); n > model.MaxMessageLen {
		return fmt.Errorf("content is %d characters, max %d: %w", n, model.MaxMessageLen, errs.ErrValidation)
	}
	return nil
}

// newMessage stamps sender fields from the principal.
func (b base) newMessage(p model.Principal, board model.BoardType, typ model.MessageType, content string) *model.Message {
	return &model.Message{
		ID:          newID(),
		BoardType:   board,
		SenderID:    p.PrincipalID(),
		SenderName:  p.DisplayName(),
		SenderRole:  p.Role(),
		AirlineCode: model.AirlineOf(p),
		MessageType: typ,
		Content:     content,
		CreatedAt:   b.now(),
	}
}

// post stores a message. Callers count it once their transaction commits.
func (b base) post(ctx context.Context, m *model.Message) error {
	if err := b.store.Messages.Create(ctx, m); err != nil {
		return fmt.Errorf("post to %s board: %w", m.BoardType, err)
	}
	return nil
}

func (b base) posted(m *model.Message) {
	b.m.DirectivesPosted.WithLabelValues(string(m.MessageType)).Inc()
}

// removePassengerTx deletes a passenger and their bags. Must run inside a transaction.
func (b base) removePassengerTx(ctx context.Context, id uuid.UUID) (int, error) {
	if err := b.store.Passengers.Lock(ctx, id); err != nil {
		return 0, err
	}
	n, err := b.store.Bags.DeleteByPassenger(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := b.store.Passengers.Delete(ctx, id); err != nil {
		return 0, err
	}
	return n, nil
}

// removeFlightTx cascades a flight to its passengers and bags. Must run inside a transaction.
func (b base) removeFlightTx(ctx context.Context, id uuid.UUID) (passengers, bags int, err error) {
	if err := b.store.Flights.Lock(ctx, id); err != nil {
		return 0, 0, err
	}
	ps, err := b.store.Passengers.ListByFlight(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range ps {
		n, err := b.store.Bags.DeleteByPassenger(ctx, p.ID)
		if err != nil {
			return 0, 0, err
		}
		bags += n
	}
	n, err := b.store.Bags.DeleteByFlight(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	bags += n
	if passengers, err = b.store.Passengers.DeleteByFlight(ctx, id); err != nil {
		return 0, 0, err
	}
	if err := b.store.Flights.Delete(ctx, id); err != nil {
		return 0, 0, err
	}
	return passengers, bags, nil
}
