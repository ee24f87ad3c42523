package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

// EscalationService implements the board-mediated hand-offs between roles.
// Remediation actions resolve their directive first, so a repeated or stale
// action is a no-op reported as handled=false.
type EscalationService interface {
	// Post appends a free-text message to a board the caller may write to.
	Post(ctx context.Context, p model.Principal, board model.BoardType, content string) (*model.Message, error)
	// Board returns a feed newest first with the action offered to the caller.
	Board(ctx context.Context, p model.Principal, board model.BoardType) ([]model.BoardEntry, error)
	// HandleViolation removes the passenger's bags and asks the administrator to remove the passenger.
	HandleViolation(ctx context.Context, p model.Principal, messageID uuid.UUID) (bool, error)
	// NotifyDeparture tells the administrator a ready flight can depart.
	NotifyDeparture(ctx context.Context, p model.Principal, flightID uuid.UUID) (*model.Message, error)
	// RemovePassenger acts on a remove_passenger directive.
	RemovePassenger(ctx context.Context, p model.Principal, messageID uuid.UUID) (bool, error)
	// DepartFlight acts on a departure_ready directive by removing the flight.
	DepartFlight(ctx context.Context, p model.Principal, messageID uuid.UUID) (bool, error)
	// Issues returns the audit log; admin only.
	Issues(ctx context.Context, p model.Principal) ([]model.Issue, error)
}

type EscalationServiceImpl struct{ base }

// NewEscalationService constructs EscalationService.
func NewEscalationService(store repository.Store, log *zap.Logger, m *metrics.Metrics) *EscalationServiceImpl {
	return &EscalationServiceImpl{base: newBase(store, log, m)}
}

// boardAccess reports whether p may use board, and the airline filter that
// applies to what it reads there.
func boardAccess(p model.Principal, board model.BoardType) (scope string, err error) {
	if !board.Valid() {
		return "", fmt.Errorf("board %q: %w", board, errs.ErrValidation)
	}
	var own model.BoardType
	switch u := p.(type) {
	case nil:
		return "", errs.ErrUnauthorized
	case model.AdminUser:
		return "", nil
	case model.AirlineStaffUser:
		own, scope = model.BoardAirline, u.AirlineCode
	case model.GateStaffUser:
		own, scope = model.BoardGate, u.AirlineCode
	case model.GroundStaffUser:
		own = model.BoardGround
	default:
		return "", fmt.Errorf("%s has no board: %w", p.Role(), errs.ErrForbidden)
	}
	if board != own {
		return "", fmt.Errorf("%s cannot use the %s board: %w", p.Role(), board, errs.ErrForbidden)
	}
	return scope, nil
}

func (s *EscalationServiceImpl) Post(ctx context.Context, p model.Principal, board model.BoardType, content string) (*model.Message, error) {
	if _, err := boardAccess(p, board); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if err := validateContent(content); err != nil {
		return nil, err
	}
	m := s.newMessage(p, board, "", content)
	if err := s.tx(ctx, func(ctx context.Context) error { return s.post(ctx, m) }); err != nil {
		return nil, err
	}
	s.posted(m)
	s.log.Info("message posted", zap.String("board", string(board)), zap.String("actor", p.DisplayName()))
	return m, nil
}

// Board hides other airlines' messages from airline-scoped readers. Messages
// without an airline are shown to everyone who can read the board.
func (s *EscalationServiceImpl) Board(ctx context.Context, p model.Principal, board model.BoardType) ([]model.BoardEntry, error) {
	scope, err := boardAccess(p, board)
	if err != nil {
		return nil, err
	}
	var out []model.BoardEntry
	err = s.tx(ctx, func(ctx context.Context) error {
		msgs, err := s.store.Messages.ListByBoard(ctx, board)
		if err != nil {
			return err
		}
		out = make([]model.BoardEntry, 0, len(msgs))
		for _, m := range msgs {
			if scope != "" && m.AirlineCode != "" && m.AirlineCode != scope {
				continue
			}
			action, err := s.actionFor(ctx, p, m)
			if err != nil {
				return err
			}
			out = append(out, model.BoardEntry{Message: m, Action: action})
		}
		return nil
	})
	return out, err
}

// actionFor offers a remediation only to a reader allowed to take it, on an
// unresolved directive whose target still exists.
func (s *EscalationServiceImpl) actionFor(ctx context.Context, p model.Principal, m model.Message) (model.Action, error) {
	if !m.IsDirective() || m.Resolved() {
		return model.ActionNone, nil
	}
	var (
		action model.Action
		exists func() error
	)
	switch u := p.(type) {
	case model.AirlineStaffUser:
		if m.MessageType == model.MsgSecurityViolation && m.AirlineCode == u.AirlineCode {
			action = model.ActionHandleViolation
			exists = func() error { _, err := s.store.Passengers.GetByID(ctx, m.PassengerID); return err }
		}
	case model.AdminUser:
		switch m.MessageType {
		case model.MsgRemovePassenger:
			action = model.ActionRemovePassenger
			exists = func() error { _, err := s.store.Passengers.GetByID(ctx, m.PassengerID); return err }
		case model.MsgDepartureReady:
			action = model.ActionDepartFlight
			exists = func() error { _, err := s.store.Flights.GetByID(ctx, m.FlightID); return err }
		}
	}
	if exists == nil {
		return model.ActionNone, nil
	}
	switch err := exists(); {
	case errors.Is(err, errs.ErrNotFound):
		return model.ActionNone, nil
	case err != nil:
		return model.ActionNone, err
	}
	return action, nil
}

// directive loads a message and checks its type. Must run inside a transaction.
func (b base) directive(ctx context.Context, id uuid.UUID, want model.MessageType) (*model.Message, error) {
	m, err := b.store.Messages.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", id, err)
	}
	if m.MessageType != want {
		return nil, fmt.Errorf("message %s is %q, not a %s directive: %w", id, m.MessageType, want, errs.ErrValidation)
	}
	return m, nil
}

// resolve claims a directive. It reports false if another actor already did.
func (b base) resolve(ctx context.Context, m *model.Message, p model.Principal) (bool, error) {
	return b.store.Messages.MarkResolved(ctx, m.ID, b.now(), p.DisplayName())
}

// HandleViolation removes every bag of the passenger, not only the flagged one.
// Only one open remove_passenger directive is kept per passenger.
func (s *EscalationServiceImpl) HandleViolation(ctx context.Context, p model.Principal, messageID uuid.UUID) (bool, error) {
	staff, err := requireAirlineStaff(p)
	if err != nil {
		return false, err
	}
	var (
		handled, resolved bool
		removed           int
		request           *model.Message
	)
	err = s.tx(ctx, func(ctx context.Context) error {
		m, err := s.directive(ctx, messageID, model.MsgSecurityViolation)
		if err != nil {
			return err
		}
		if m.AirlineCode != staff.AirlineCode {
			return fmt.Errorf("directive belongs to airline %s: %w", m.AirlineCode, errs.ErrForbidden)
		}
		if resolved, err = s.resolve(ctx, m, p); err != nil || !resolved {
			return err
		}
		pa, err := s.store.Passengers.GetByID(ctx, m.PassengerID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if removed, err = s.store.Bags.DeleteByPassenger(ctx, pa.ID); err != nil {
			return err
		}
		open, err := s.openDirective(ctx, model.BoardAdmin, model.MsgRemovePassenger, pa.ID)
		if err != nil {
			return err
		}
		handled = true
		if open {
			return nil
		}
		if err := s.store.Issues.Create(ctx, &model.Issue{
			ID:          newID(),
			Type:        model.IssuePassengerRemoval,
			Description: "security violation: " + m.Content,
			PassengerID: pa.ID,
			BagID:       m.BagID,
			ReportedBy:  p.DisplayName(),
			CreatedAt:   s.now(),
		}); err != nil {
			return err
		}
		request = s.newMessage(p, model.BoardAdmin, model.MsgRemovePassenger,
			fmt.Sprintf("Remove %s (ticket %s): bags removed after security violation", pa.FullName(), pa.TicketNumber))
		request.FlightID = pa.FlightID
		request.PassengerID = pa.ID
		request.BagID = m.BagID
		return s.post(ctx, request)
	})
	if err != nil {
		return false, err
	}
	if resolved {
		s.m.DirectivesResolved.WithLabelValues(string(model.MsgSecurityViolation)).Inc()
	}
	if request != nil {
		s.posted(request)
	}
	s.m.BagsRemoved.Add(float64(removed))
	s.log.Info("violation handled", zap.String("message", messageID.String()), zap.Bool("handled", handled),
		zap.Int("bags", removed), zap.String("actor", p.DisplayName()))
	return handled, nil
}

// openDirective reports whether board holds an unresolved directive of typ for the passenger.
func (b base) openDirective(ctx context.Context, board model.BoardType, typ model.MessageType, passengerID uuid.UUID) (bool, error) {
	msgs, err := b.store.Messages.ListByBoard(ctx, board)
	if err != nil {
		return false, err
	}
	for _, m := range msgs {
		if m.MessageType == typ && m.PassengerID == passengerID && !m.Resolved() {
			return true, nil
		}
	}
	return false, nil
}

func (s *EscalationServiceImpl) NotifyDeparture(ctx context.Context, p model.Principal, flightID uuid.UUID) (*model.Message, error) {
	staff, err := requireGateStaff(p)
	if err != nil {
		return nil, err
	}
	var msg *model.Message
	err = s.tx(ctx, func(ctx context.Context) error {
		f, err := s.store.Flights.GetByID(ctx, flightID)
		if err != nil {
			return err
		}
		if err := checkAirline(staff.AirlineCode, f); err != nil {
			return err
		}
		r, err := s.readinessTx(ctx, flightID)
		if err != nil {
			return err
		}
		if !r.Ready {
			return fmt.Errorf("flight %s not ready: %d/%d passengers boarded, %d/%d bags loaded: %w",
				f.Code(), r.Boarded, r.TotalPassengers, r.LoadedBags, r.TotalBags, errs.ErrPrecondition)
		}
		dest := f.Destination
		if dest == "" {
			dest = "destination not set"
		}
		msg = s.newMessage(p, model.BoardAdmin, model.MsgDepartureReady,
			fmt.Sprintf("Flight %s (%s) ready for departure from %s/%s: %d passengers boarded, %d bags loaded",
				f.Code(), dest, f.Terminal, f.Gate, r.Boarded, r.LoadedBags))
		msg.AirlineCode = f.AirlineCode
		msg.FlightID = f.ID
		return s.post(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	s.posted(msg)
	s.log.Info("departure notified", zap.String("flight", flightID.String()), zap.String("actor", p.DisplayName()))
	return msg, nil
}

func (s *EscalationServiceImpl) RemovePassenger(ctx context.Context, p model.Principal, messageID uuid.UUID) (bool, error) {
	if _, err := requireAdmin(p); err != nil {
		return false, err
	}
	var (
		handled, resolved bool
		removed           int
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		m, err := s.directive(ctx, messageID, model.MsgRemovePassenger)
		if err != nil {
			return err
		}
		if resolved, err = s.resolve(ctx, m, p); err != nil || !resolved {
			return err
		}
		if err := s.store.Passengers.Lock(ctx, m.PassengerID); errors.Is(err, errs.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if removed, err = s.removePassengerTx(ctx, m.PassengerID); err != nil {
			return err
		}
		handled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if resolved {
		s.m.DirectivesResolved.WithLabelValues(string(model.MsgRemovePassenger)).Inc()
	}
	s.m.BagsRemoved.Add(float64(removed))
	s.log.Info("passenger removal handled", zap.String("message", messageID.String()), zap.Bool("handled", handled),
		zap.Int("bags", removed))
	return handled, nil
}

func (s *EscalationServiceImpl) DepartFlight(ctx context.Context, p model.Principal, messageID uuid.UUID) (bool, error) {
	if _, err := requireAdmin(p); err != nil {
		return false, err
	}
	var (
		handled, resolved bool
		passengers, bags  int
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		m, err := s.directive(ctx, messageID, model.MsgDepartureReady)
		if err != nil {
			return err
		}
		if resolved, err = s.resolve(ctx, m, p); err != nil || !resolved {
			return err
		}
		if err := s.store.Flights.Lock(ctx, m.FlightID); errors.Is(err, errs.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if passengers, bags, err = s.removeFlightTx(ctx, m.FlightID); err != nil {
			return err
		}
		handled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if resolved {
		s.m.DirectivesResolved.WithLabelValues(string(model.MsgDepartureReady)).Inc()
	}
	s.m.BagsRemoved.Add(float64(bags))
	s.log.Info("flight departed", zap.String("message", messageID.String()), zap.Bool("handled", handled),
		zap.Int("passengers", passengers), zap.Int("bags", bags))
	return handled, nil
}

func (s *EscalationServiceImpl) Issues(ctx context.Context, p model.Principal) ([]model.Issue, error) {
	if _, err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.Issues.List(ctx)
}
