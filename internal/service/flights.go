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

// FlightService enforces flight code and gate occupancy rules.
type FlightService interface {
	// Create adds a flight; admin only.
	Create(ctx context.Context, p model.Principal, in model.NewFlight) (*model.Flight, error)
	// Get returns a flight by ID.
	Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Flight, error)
	// List returns flights; an empty airline code lists every airline.
	List(ctx context.Context, p model.Principal, airlineCode string) ([]model.Flight, error)
	// ReassignGate moves a flight and notifies the ground board; gate staff of the airline only.
	ReassignGate(ctx context.Context, p model.Principal, id uuid.UUID, terminal, gate string) (*model.Flight, error)
	// Readiness computes departure readiness on demand.
	Readiness(ctx context.Context, p model.Principal, id uuid.UUID) (model.Readiness, error)
	// Remove deletes a flight with its passengers and bags; admin only.
	Remove(ctx context.Context, p model.Principal, id uuid.UUID) error
}

type FlightServiceImpl struct{ base }

// NewFlightService constructs FlightService.
func NewFlightService(store repository.Store, log *zap.Logger, m *metrics.Metrics) *FlightServiceImpl {
	return &FlightServiceImpl{base: newBase(store, log, m)}
}

// Create validates the input and rejects duplicate codes and occupied gates.
func (s *FlightServiceImpl) Create(ctx context.Context, p model.Principal, in model.NewFlight) (*model.Flight, error) {
	if _, err := requireAdmin(p); err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	f := &model.Flight{
		ID:           newID(),
		AirlineCode:  in.AirlineCode,
		FlightNumber: in.FlightNumber,
		AirlineName:  in.AirlineName,
		Destination:  in.Destination,
		Terminal:     in.Terminal,
		Gate:         in.Gate,
		CreatedAt:    s.now(),
	}
	err := s.tx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Flights.GetByCode(ctx, f.AirlineCode, f.FlightNumber); err == nil {
			return fmt.Errorf("flight %s already exists: %w", f.Code(), errs.ErrConflict)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		if err := s.gateFree(ctx, f.Terminal, f.Gate, uuid.Nil); err != nil {
			return err
		}
		return s.store.Flights.Create(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("flight created", zap.String("flight", f.Code()), zap.String("terminal", f.Terminal), zap.String("gate", f.Gate))
	return f, nil
}

// gateFree fails with ErrConflict if another flight than self holds (terminal, gate).
func (s *FlightServiceImpl) gateFree(ctx context.Context, terminal, gate string, self uuid.UUID) error {
	other, err := s.store.Flights.GetByGate(ctx, terminal, gate)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return fmt.Errorf("gate %s/%s is occupied by flight %s: %w", terminal, gate, other.Code(), errs.ErrConflict)
	}
	return nil
}

// Get returns a flight to any staff member.
func (s *FlightServiceImpl) Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Flight, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	return s.store.Flights.GetByID(ctx, id)
}

// List returns flights to any staff member.
func (s *FlightServiceImpl) List(ctx context.Context, p model.Principal, airlineCode string) ([]model.Flight, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	return s.store.Flights.List(ctx, strings.ToUpper(strings.TrimSpace(airlineCode)))
}

// ReassignGate is a no-op when the gate does not change.
func (s *FlightServiceImpl) ReassignGate(ctx context.Context, p model.Principal, id uuid.UUID, terminal, gate string) (*model.Flight, error) {
	staff, err := requireGateStaff(p)
	if err != nil {
		return nil, err
	}
	terminal = strings.ToUpper(strings.TrimSpace(terminal))
	gate = strings.ToUpper(strings.TrimSpace(gate))
	if err := model.Required("terminal", terminal); err != nil {
		return nil, err
	}
	if err := model.Required("gate", gate); err != nil {
		return nil, err
	}

	var (
		f      *model.Flight
		notice *model.Message
	)
	err = s.tx(ctx, func(ctx context.Context) error {
		var err error
		if f, err = s.store.Flights.GetByID(ctx, id); err != nil {
			return err
		}
		if err := checkAirline(staff.AirlineCode, f); err != nil {
			return err
		}
		if f.Terminal == terminal && f.Gate == gate {
			return nil
		}
		if err := s.gateFree(ctx, terminal, gate, f.ID); err != nil {
			return err
		}
		if err := s.store.Flights.UpdateGate(ctx, f.ID, terminal, gate); err != nil {
			return err
		}
		notice = s.newMessage(p, model.BoardGround, model.MsgGateChange,
			fmt.Sprintf("Flight %s moved from %s/%s to %s/%s", f.Code(), f.Terminal, f.Gate, terminal, gate))
		notice.AirlineCode = f.AirlineCode
		notice.FlightID = f.ID
		f.Terminal, f.Gate = terminal, gate
		return s.post(ctx, notice)
	})
	if err != nil {
		return nil, err
	}
	if notice != nil {
		s.posted(notice)
		s.log.Info("gate reassigned", zap.String("flight", f.Code()), zap.String("terminal", terminal),
			zap.String("gate", gate), zap.String("actor", p.DisplayName()))
	}
	return f, nil
}

// Readiness reads the flight's passengers and bags and derives readiness.
func (s *FlightServiceImpl) Readiness(ctx context.Context, p model.Principal, id uuid.UUID) (model.Readiness, error) {
	if err := requireStaff(p); err != nil {
		return model.Readiness{}, err
	}
	var r model.Readiness
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.readinessTx(ctx, id)
		return err
	})
	return r, err
}

func (b base) readinessTx(ctx context.Context, id uuid.UUID) (model.Readiness, error) {
	if _, err := b.store.Flights.GetByID(ctx, id); err != nil {
		return model.Readiness{}, err
	}
	ps, err := b.store.Passengers.ListByFlight(ctx, id)
	if err != nil {
		return model.Readiness{}, err
	}
	bags, err := b.store.Bags.List(ctx, repository.BagFilter{FlightID: id})
	if err != nil {
		return model.Readiness{}, err
	}
	return model.ComputeReadiness(id, ps, bags), nil
}

// Remove cascades to passengers and bags.
func (s *FlightServiceImpl) Remove(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if _, err := requireAdmin(p); err != nil {
		return err
	}
	var (
		f             *model.Flight
		passengers, n int
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		if f, err = s.store.Flights.GetByID(ctx, id); err != nil {
			return err
		}
		passengers, n, err = s.removeFlightTx(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.m.BagsRemoved.Add(float64(n))
	s.log.Info("flight removed", zap.String("flight", f.Code()), zap.Int("passengers", passengers), zap.Int("bags", n))
	return nil
}
