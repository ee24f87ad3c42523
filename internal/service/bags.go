package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

// BagService drives the bag location machine. Transition operations take a
// bag reference: the 6-digit display code or the bag's UUID.
type BagService interface {
	Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Bag, error)
	FindByCode(ctx context.Context, p model.Principal, code string) (*model.Bag, error)
	List(ctx context.Context, p model.Principal, f repository.BagFilter) ([]model.Bag, error)
	// AdvanceToSecurity moves a bag from check_in to security.
	AdvanceToSecurity(ctx context.Context, p model.Principal, ref string) (*model.Bag, error)
	// ClearSecurity moves a bag to gate and records the flight's current gate.
	ClearSecurity(ctx context.Context, p model.Principal, ref string) (*model.Bag, error)
	// FlagViolation parks a bag in security_violation and alerts the airline board.
	FlagViolation(ctx context.Context, p model.Principal, ref, description string) (*model.Bag, error)
	// Load moves a bag from gate to loaded once its owner has boarded.
	Load(ctx context.Context, p model.Principal, ref string) (*model.Bag, error)
}

type BagServiceImpl struct{ base }

// NewBagService constructs BagService.
func NewBagService(store repository.Store, log *zap.Logger, m *metrics.Metrics) *BagServiceImpl {
	return &BagServiceImpl{base: newBase(store, log, m)}
}

func (s *BagServiceImpl) Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Bag, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	return s.store.Bags.GetByID(ctx, id)
}

func (s *BagServiceImpl) FindByCode(ctx context.Context, p model.Principal, code string) (*model.Bag, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if err := model.ValidateBagCode(code); err != nil {
		return nil, err
	}
	return s.store.Bags.GetByCode(ctx, code)
}

func (s *BagServiceImpl) List(ctx context.Context, p model.Principal, f repository.BagFilter) ([]model.Bag, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	if f.Location != "" && !f.Location.Valid() {
		return nil, fmt.Errorf("location %q: %w", f.Location, errs.ErrValidation)
	}
	return s.store.Bags.List(ctx, f)
}

// resolveBag accepts a display code or a UUID.
func (b base) resolveBag(ctx context.Context, ref string) (*model.Bag, error) {
	ref = strings.TrimSpace(ref)
	if model.ValidateBagCode(ref) == nil {
		return b.store.Bags.GetByCode(ctx, ref)
	}
	id, err := uuid.FromString(ref)
	if err != nil {
		return nil, fmt.Errorf("bag reference %q is neither a bag code nor an id: %w", ref, errs.ErrValidation)
	}
	return b.store.Bags.GetByID(ctx, id)
}

// move applies one transition. guard runs after the edge is validated and
// may enrich the bag or veto the move; it runs in the same transaction.
func (s *BagServiceImpl) move(ctx context.Context, p model.Principal, ref string, to model.BagLocation,
	guard func(ctx context.Context, b *model.Bag) error) (*model.Bag, error) {
	if _, err := requireGroundStaff(p); err != nil {
		return nil, err
	}
	actor := p.DisplayName()
	var (
		b    *model.Bag
		from model.BagLocation
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.resolveBag(ctx, ref); err != nil {
			return err
		}
		from = b.Location
		if err := b.MoveTo(to, actor, s.now()); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(ctx, b); err != nil {
				return err
			}
		}
		return s.store.Bags.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.m.BagTransitions.WithLabelValues(string(to)).Inc()
	s.log.Info("bag moved", zap.String("bag", b.BagID), zap.String("from", string(from)),
		zap.String("to", string(to)), zap.String("actor", actor))
	return b, nil
}

func (s *BagServiceImpl) AdvanceToSecurity(ctx context.Context, p model.Principal, ref string) (*model.Bag, error) {
	return s.move(ctx, p, ref, model.BagSecurity, nil)
}

// ClearSecurity snapshots the gate; a later reassignment does not move cleared bags.
func (s *BagServiceImpl) ClearSecurity(ctx context.Context, p model.Principal, ref string) (*model.Bag, error) {
	return s.move(ctx, p, ref, model.BagGate, func(ctx context.Context, b *model.Bag) error {
		f, err := s.store.Flights.GetByID(ctx, b.FlightID)
		if err != nil {
			return err
		}
		b.GateNumber = f.Gate
		return nil
	})
}

func (s *BagServiceImpl) FlagViolation(ctx context.Context, p model.Principal, ref, description string) (*model.Bag, error) {
	description = strings.TrimSpace(description)
	if err := validateContent(description); err != nil {
		return nil, err
	}
	var msg *model.Message
	b, err := s.move(ctx, p, ref, model.BagSecurityViolation, func(ctx context.Context, b *model.Bag) error {
		pa, err := s.store.Passengers.GetByID(ctx, b.PassengerID)
		if err != nil {
			return err
		}
		f, err := s.store.Flights.GetByID(ctx, b.FlightID)
		if err != nil {
			return err
		}
		if err := s.store.Issues.Create(ctx, &model.Issue{
			ID:          newID(),
			Type:        model.IssueSecurityViolation,
			Description: description,
			PassengerID: pa.ID,
			BagID:       b.ID,
			ReportedBy:  p.DisplayName(),
			CreatedAt:   s.now(),
		}); err != nil {
			return err
		}
		msg = s.newMessage(p, model.BoardAirline, model.MsgSecurityViolation,
			fmt.Sprintf("Bag %s of %s (ticket %s, flight %s) failed security: %s",
				b.BagID, pa.FullName(), pa.TicketNumber, f.Code(), description))
		msg.AirlineCode = f.AirlineCode
		msg.FlightID = f.ID
		msg.PassengerID = pa.ID
		msg.BagID = b.ID
		return s.post(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	s.posted(msg)
	return b, nil
}

// Load is the only transition with a cross-entity guard.
func (s *BagServiceImpl) Load(ctx context.Context, p model.Principal, ref string) (*model.Bag, error) {
	return s.move(ctx, p, ref, model.BagLoaded, func(ctx context.Context, b *model.Bag) error {
		pa, err := s.store.Passengers.GetByID(ctx, b.PassengerID)
		if err != nil {
			return err
		}
		if pa.Status != model.PassengerBoarded {
			return fmt.Errorf("bag %s: passenger not boarded: %w", b.BagID, errs.ErrPrecondition)
		}
		return nil
	})
}
