package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/bagtrack/internal/crypto"
	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

// bagCodeAttempts bounds retries when a generated bag code is already taken.
const bagCodeAttempts = 10

// PassengerService drives the passenger status machine.
type PassengerService interface {
	// Create adds a passenger at not_checked_in; admin only.
	Create(ctx context.Context, p model.Principal, in model.NewPassenger) (*model.Passenger, error)
	// Get returns a passenger by ID.
	Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Passenger, error)
	// GetByTicket returns a passenger by ticket number.
	GetByTicket(ctx context.Context, p model.Principal, ticket string) (*model.Passenger, error)
	// ListByFlight returns the passengers of a flight.
	ListByFlight(ctx context.Context, p model.Principal, flightID uuid.UUID) ([]model.Passenger, error)
	// Remove deletes a passenger and their bags; admin only.
	Remove(ctx context.Context, p model.Principal, id uuid.UUID) error
	// CheckIn creates one bag per declaration and marks the passenger checked in.
	CheckIn(ctx context.Context, p model.Principal, ticket string, manifest []model.BagDeclaration) (*model.Passenger, []model.Bag, error)
	// Board marks a checked-in passenger boarded once all their bags are at the gate.
	Board(ctx context.Context, p model.Principal, ticket, gate string) (*model.Passenger, error)
	// ReportIssue records an audit issue and routes a directive to the acting board.
	ReportIssue(ctx context.Context, p model.Principal, ticket string, typ model.IssueType, description string) (*model.Issue, error)
	// Dashboard returns the caller's own record; passengers only.
	Dashboard(ctx context.Context, p model.Principal) (*Dashboard, error)
}

// Dashboard is the passenger's view of their trip.
type Dashboard struct {
	Passenger model.Passenger
	Flight    model.Flight
	Bags      []model.Bag
}

type PassengerServiceImpl struct{ base }

// NewPassengerService constructs PassengerService.
func NewPassengerService(store repository.Store, log *zap.Logger, m *metrics.Metrics) *PassengerServiceImpl {
	return &PassengerServiceImpl{base: newBase(store, log, m)}
}

func (s *PassengerServiceImpl) Create(ctx context.Context, p model.Principal, in model.NewPassenger) (*model.Passenger, error) {
	if _, err := requireAdmin(p); err != nil {
		return nil, err
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Identification = strings.TrimSpace(in.Identification)
	in.TicketNumber = strings.TrimSpace(in.TicketNumber)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	pa := &model.Passenger{
		ID:             newID(),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Identification: in.Identification,
		TicketNumber:   in.TicketNumber,
		FlightID:       in.FlightID,
		Status:         model.PassengerNotCheckedIn,
		CreatedAt:      s.now(),
	}
	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.store.Flights.Lock(ctx, in.FlightID); err != nil {
			return err
		}
		if _, err := s.store.Passengers.GetByTicket(ctx, pa.TicketNumber); err == nil {
			return fmt.Errorf("ticket %s already issued: %w", pa.TicketNumber, errs.ErrConflict)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return s.store.Passengers.Create(ctx, pa)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("passenger created", zap.String("ticket", pa.TicketNumber), zap.String("flight", pa.FlightID.String()))
	return pa, nil
}

func (s *PassengerServiceImpl) Get(ctx context.Context, p model.Principal, id uuid.UUID) (*model.Passenger, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	return s.store.Passengers.GetByID(ctx, id)
}

func (s *PassengerServiceImpl) GetByTicket(ctx context.Context, p model.Principal, ticket string) (*model.Passenger, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	ticket = strings.TrimSpace(ticket)
	if err := model.ValidateTicketNumber(ticket); err != nil {
		return nil, err
	}
	return s.store.Passengers.GetByTicket(ctx, ticket)
}

func (s *PassengerServiceImpl) ListByFlight(ctx context.Context, p model.Principal, flightID uuid.UUID) ([]model.Passenger, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	if _, err := s.store.Flights.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	return s.store.Passengers.ListByFlight(ctx, flightID)
}

func (s *PassengerServiceImpl) Remove(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if _, err := requireAdmin(p); err != nil {
		return err
	}
	var n int
	err := s.tx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Passengers.GetByID(ctx, id); err != nil {
			return err
		}
		var err error
		n, err = s.removePassengerTx(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.m.BagsRemoved.Add(float64(n))
	s.log.Info("passenger removed", zap.String("passenger", id.String()), zap.Int("bags", n))
	return nil
}

// loadForAction resolves the passenger by ticket together with its flight
// and enforces the airline scope of the caller. Must run inside a transaction.
func (b base) loadForAction(ctx context.Context, scope, ticket string) (*model.Passenger, *model.Flight, error) {
	pa, err := b.store.Passengers.GetByTicket(ctx, ticket)
	if err != nil {
		return nil, nil, fmt.Errorf("ticket %s: %w", ticket, err)
	}
	f, err := b.store.Flights.GetByID(ctx, pa.FlightID)
	if err != nil {
		return nil, nil, err
	}
	if scope != "" {
		if err := checkAirline(scope, f); err != nil {
			return nil, nil, err
		}
	}
	return pa, f, nil
}

// CheckIn validates the whole manifest before touching storage, so a blank
// counter leaves the passenger and bags untouched.
func (s *PassengerServiceImpl) CheckIn(ctx context.Context, p model.Principal, ticket string, manifest []model.BagDeclaration) (*model.Passenger, []model.Bag, error) {
	staff, err := requireAirlineStaff(p)
	if err != nil {
		return nil, nil, err
	}
	ticket = strings.TrimSpace(ticket)
	if err := model.ValidateTicketNumber(ticket); err != nil {
		return nil, nil, err
	}
	counters := make([]string, len(manifest))
	for i, d := range manifest {
		counters[i] = strings.TrimSpace(d.CounterNumber)
		if counters[i] == "" {
			return nil, nil, fmt.Errorf("bag %d: counter number is required: %w", i+1, errs.ErrValidation)
		}
	}

	var (
		pa   *model.Passenger
		bags []model.Bag
	)
	actor := p.DisplayName()
	err = s.tx(ctx, func(ctx context.Context) error {
		var (
			f   *model.Flight
			err error
		)
		if pa, f, err = s.loadForAction(ctx, staff.AirlineCode, ticket); err != nil {
			return err
		}
		ver := pa.Version
		if err := pa.Advance(model.PassengerCheckedIn); err != nil {
			return err
		}
		if pa.Version, err = s.store.Passengers.UpdateStatus(ctx, pa.ID, pa.Status, ver); err != nil {
			return err
		}
		now := s.now()
		taken := make(map[string]bool, len(counters))
		bags = make([]model.Bag, 0, len(counters))
		for _, counter := range counters {
			code, err := s.freeBagCode(ctx, taken)
			if err != nil {
				return err
			}
			taken[code] = true
			b := model.NewCheckedBag(newID(), code, *pa, *f, counter, actor, now)
			if err := s.store.Bags.Create(ctx, &b); err != nil {
				return err
			}
			bags = append(bags, b)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.m.PassengerTransitions.WithLabelValues(string(model.PassengerCheckedIn)).Inc()
	s.m.BagTransitions.WithLabelValues(string(model.BagCheckIn)).Add(float64(len(bags)))
	s.log.Info("passenger checked in", zap.String("ticket", ticket), zap.Int("bags", len(bags)), zap.String("actor", actor))
	return pa, bags, nil
}

// freeBagCode generates a code not used by a stored bag or by taken.
func (b base) freeBagCode(ctx context.Context, taken map[string]bool) (string, error) {
	for range bagCodeAttempts {
		code, err := crypto.GenerateBagCode()
		if err != nil {
			return "", err
		}
		if taken[code] {
			continue
		}
		_, err = b.store.Bags.GetByCode(ctx, code)
		if errors.Is(err, errs.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free bag code after %d attempts: %w", bagCodeAttempts, errs.ErrConflict)
}

// Board checks the passenger status before the bags, so boarding twice
// reports the status rather than the bags.
func (s *PassengerServiceImpl) Board(ctx context.Context, p model.Principal, ticket, gate string) (*model.Passenger, error) {
	staff, err := requireGateStaff(p)
	if err != nil {
		return nil, err
	}
	ticket = strings.TrimSpace(ticket)
	if err := model.ValidateTicketNumber(ticket); err != nil {
		return nil, err
	}
	gate = strings.ToUpper(strings.TrimSpace(gate))

	var pa *model.Passenger
	err = s.tx(ctx, func(ctx context.Context) error {
		var (
			f   *model.Flight
			err error
		)
		if pa, f, err = s.loadForAction(ctx, staff.AirlineCode, ticket); err != nil {
			return err
		}
		if gate != "" && gate != f.Gate {
			return fmt.Errorf("flight %s boards at gate %s, not %s: %w", f.Code(), f.Gate, gate, errs.ErrForbidden)
		}
		if err := model.CheckPassengerTransition(pa.Status, model.PassengerBoarded); err != nil {
			return err
		}
		bags, err := s.store.Bags.List(ctx, repository.BagFilter{PassengerID: pa.ID})
		if err != nil {
			return err
		}
		var missing []string
		for _, b := range bags {
			if b.Location != model.BagGate {
				missing = append(missing, fmt.Sprintf("%s (%s)", b.BagID, b.Location))
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("bags not at gate: %s: %w", strings.Join(missing, ", "), errs.ErrInvalidState)
		}
		ver := pa.Version
		pa.Status = model.PassengerBoarded
		pa.Version, err = s.store.Passengers.UpdateStatus(ctx, pa.ID, pa.Status, ver)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.m.PassengerTransitions.WithLabelValues(string(model.PassengerBoarded)).Inc()
	s.log.Info("passenger boarded", zap.String("ticket", ticket), zap.String("actor", p.DisplayName()))
	return pa, nil
}

// ReportIssue never changes the passenger. Security violations go to the
// airline board of the passenger's flight; removal requests go to the admin board.
func (s *PassengerServiceImpl) ReportIssue(ctx context.Context, p model.Principal, ticket string, typ model.IssueType, description string) (*model.Issue, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("issue type %q: %w", typ, errs.ErrValidation)
	}
	ticket = strings.TrimSpace(ticket)
	if err := model.ValidateTicketNumber(ticket); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if err := validateContent(description); err != nil {
		return nil, err
	}

	var (
		issue *model.Issue
		msg   *model.Message
	)
	err := s.tx(ctx, func(ctx context.Context) error {
		pa, f, err := s.loadForAction(ctx, model.AirlineOf(p), ticket)
		if err != nil {
			return err
		}
		issue = &model.Issue{
			ID:          newID(),
			Type:        typ,
			Description: description,
			PassengerID: pa.ID,
			ReportedBy:  p.DisplayName(),
			CreatedAt:   s.now(),
		}
		if err := s.store.Issues.Create(ctx, issue); err != nil {
			return err
		}
		switch typ {
		case model.IssueSecurityViolation:
			msg = s.newMessage(p, model.BoardAirline, model.MsgSecurityViolation,
				fmt.Sprintf("Security issue for %s (ticket %s, flight %s): %s", pa.FullName(), pa.TicketNumber, f.Code(), description))
		case model.IssuePassengerRemoval:
			msg = s.newMessage(p, model.BoardAdmin, model.MsgRemovePassenger,
				fmt.Sprintf("Remove %s (ticket %s) from flight %s: %s", pa.FullName(), pa.TicketNumber, f.Code(), description))
		}
		msg.AirlineCode = f.AirlineCode
		msg.FlightID = f.ID
		msg.PassengerID = pa.ID
		return s.post(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	s.posted(msg)
	s.log.Info("issue reported", zap.String("type", string(typ)), zap.String("ticket", ticket),
		zap.String("board", string(msg.BoardType)), zap.String("actor", p.DisplayName()))
	return issue, nil
}

func (s *PassengerServiceImpl) Dashboard(ctx context.Context, p model.Principal) (*Dashboard, error) {
	u, ok := p.(model.PassengerUser)
	if !ok {
		return nil, roleErr(p, model.RolePassenger)
	}
	var d Dashboard
	err := s.tx(ctx, func(ctx context.Context) error {
		pa, err := s.store.Passengers.GetByID(ctx, u.ID)
		if err != nil {
			return err
		}
		f, err := s.store.Flights.GetByID(ctx, pa.FlightID)
		if err != nil {
			return err
		}
		bags, err := s.store.Bags.List(ctx, repository.BagFilter{PassengerID: pa.ID})
		if err != nil {
			return err
		}
		d = Dashboard{Passenger: *pa, Flight: *f, Bags: bags}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}
