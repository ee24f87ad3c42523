package grpcserver

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/api"
	"github.com/and161185/bagtrack/internal/convert"
	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/service"
)

// --- Auth ---

func (s *Server) login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	tok, p, err := s.auth.Login(ctx, model.Role(req.Role), service.Credentials{
		Username:       req.Username,
		Password:       req.Password,
		Identification: req.Identification,
		TicketNumber:   req.TicketNumber,
	}, remoteIP(ctx))
	if err != nil {
		return nil, err
	}
	return &api.LoginResponse{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: convert.ToUser(p)}, nil
}

func (s *Server) logout(ctx context.Context, _ *api.Empty) (*api.Empty, error) {
	tok, _ := bearerTokenFromMD(ctx)
	if err := s.auth.Logout(ctx, tok); err != nil {
		return nil, err
	}
	return &api.Empty{}, nil
}

func (s *Server) me(ctx context.Context, _ *api.Empty) (*api.User, error) {
	p := caller(ctx)
	if p == nil {
		return nil, errs.ErrUnauthorized
	}
	u := convert.ToUser(p)
	return &u, nil
}

func (s *Server) changePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.Empty, error) {
	if err := s.auth.ChangePassword(ctx, caller(ctx), req.Current, req.New); err != nil {
		return nil, err
	}
	return &api.Empty{}, nil
}

func (s *Server) createStaff(ctx context.Context, req *api.NewStaffRequest) (*api.StaffCredentials, error) {
	c, err := s.auth.CreateStaff(ctx, caller(ctx), convert.FromNewStaff(req))
	if err != nil {
		return nil, err
	}
	return convert.ToStaffCredentials(*c), nil
}

func (s *Server) removeStaff(ctx context.Context, req *api.IDRequest) (*api.Empty, error) {
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if err := s.auth.RemoveStaff(ctx, caller(ctx), id); err != nil {
		return nil, err
	}
	return &api.Empty{}, nil
}

func (s *Server) listStaff(ctx context.Context, req *api.ListStaffRequest) (*api.StaffList, error) {
	list, err := s.auth.ListStaff(ctx, caller(ctx), model.StaffType(req.StaffType))
	if err != nil {
		return nil, err
	}
	return convert.ToStaffList(list), nil
}

// --- Flights ---

func (s *Server) createFlight(ctx context.Context, req *api.NewFlightRequest) (*api.Flight, error) {
	f, err := s.flights.Create(ctx, caller(ctx), convert.FromNewFlight(req))
	if err != nil {
		return nil, err
	}
	out := convert.ToFlight(*f)
	return &out, nil
}

func (s *Server) getFlight(ctx context.Context, req *api.IDRequest) (*api.Flight, error) {
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	f, err := s.flights.Get(ctx, caller(ctx), id)
	if err != nil {
		return nil, err
	}
	out := convert.ToFlight(*f)
	return &out, nil
}

func (s *Server) listFlights(ctx context.Context, req *api.ListFlightsRequest) (*api.FlightList, error) {
	list, err := s.flights.List(ctx, caller(ctx), req.AirlineCode)
	if err != nil {
		return nil, err
	}
	return convert.ToFlightList(list), nil
}

func (s *Server) reassignGate(ctx context.Context, req *api.ReassignGateRequest) (*api.Flight, error) {
	id, err := convert.ParseID("flightId", req.FlightID)
	if err != nil {
		return nil, err
	}
	f, err := s.flights.ReassignGate(ctx, caller(ctx), id, req.Terminal, req.Gate)
	if err != nil {
		return nil, err
	}
	out := convert.ToFlight(*f)
	return &out, nil
}

func (s *Server) flightReadiness(ctx context.Context, req *api.IDRequest) (*api.Readiness, error) {
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	r, err := s.flights.Readiness(ctx, caller(ctx), id)
	if err != nil {
		return nil, err
	}
	return convert.ToReadiness(r), nil
}

func (s *Server) removeFlight(ctx context.Context, req *api.IDRequest) (*api.Empty, error) {
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if err := s.flights.Remove(ctx, caller(ctx), id); err != nil {
		return nil, err
	}
	return &api.Empty{}, nil
}

// --- Passengers ---

func (s *Server) createPassenger(ctx context.Context, req *api.NewPassengerRequest) (*api.Passenger, error) {
	in, err := convert.FromNewPassenger(req)
	if err != nil {
		return nil, err
	}
	p, err := s.passengers.Create(ctx, caller(ctx), in)
	if err != nil {
		return nil, err
	}
	out := convert.ToPassenger(*p)
	return &out, nil
}

func (s *Server) getPassenger(ctx context.Context, req *api.GetPassengerRequest) (*api.Passenger, error) {
	var (
		p   *model.Passenger
		err error
	)
	if req.ID != "" {
		var id uuid.UUID
		if id, err = convert.ParseID("id", req.ID); err != nil {
			return nil, err
		}
		p, err = s.passengers.Get(ctx, caller(ctx), id)
	} else {
		p, err = s.passengers.GetByTicket(ctx, caller(ctx), req.TicketNumber)
	}
	if err != nil {
		return nil, err
	}
	out := convert.ToPassenger(*p)
	return &out, nil
}

func (s *Server) listPassengers(ctx context.Context, req *api.ListPassengersRequest) (*api.PassengerList, error) {
	id, err := convert.ParseID("flightId", req.FlightID)
	if err != nil {
		return nil, err
	}
	list, err := s.passengers.ListByFlight(ctx, caller(ctx), id)
	if err != nil {
		return nil, err
	}
	return convert.ToPassengerList(list), nil
}

func (s *Server) removePassenger(ctx context.Context, req *api.IDRequest) (*api.Empty, error) {
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if err := s.passengers.Remove(ctx, caller(ctx), id); err != nil {
		return nil, err
	}
	return &api.Empty{}, nil
}

func (s *Server) checkIn(ctx context.Context, req *api.CheckInRequest) (*api.CheckInResponse, error) {
	p, bags, err := s.passengers.CheckIn(ctx, caller(ctx), req.TicketNumber, convert.FromCounters(req.Counters))
	if err != nil {
		return nil, err
	}
	return convert.ToCheckIn(*p, bags), nil
}

func (s *Server) board(ctx context.Context, req *api.BoardRequest) (*api.Passenger, error) {
	p, err := s.passengers.Board(ctx, caller(ctx), req.TicketNumber, req.Gate)
	if err != nil {
		return nil, err
	}
	out := convert.ToPassenger(*p)
	return &out, nil
}

func (s *Server) reportIssue(ctx context.Context, req *api.ReportIssueRequest) (*api.Issue, error) {
	i, err := s.passengers.ReportIssue(ctx, caller(ctx), req.TicketNumber, model.IssueType(req.Type), req.Description)
	if err != nil {
		return nil, err
	}
	out := convert.ToIssue(*i)
	return &out, nil
}

func (s *Server) dashboard(ctx context.Context, _ *api.Empty) (*api.Dashboard, error) {
	d, err := s.passengers.Dashboard(ctx, caller(ctx))
	if err != nil {
		return nil, err
	}
	return convert.ToDashboard(*d), nil
}

// --- Bags ---

func (s *Server) getBag(ctx context.Context, req *api.BagRequest) (*api.Bag, error) {
	var (
		b   *model.Bag
		err error
	)
	if id, perr := uuid.FromString(strings.TrimSpace(req.Ref)); perr == nil {
		b, err = s.bags.Get(ctx, caller(ctx), id)
	} else {
		b, err = s.bags.FindByCode(ctx, caller(ctx), req.Ref)
	}
	if err != nil {
		return nil, err
	}
	out := convert.ToBag(*b)
	return &out, nil
}

func (s *Server) listBags(ctx context.Context, req *api.ListBagsRequest) (*api.BagList, error) {
	f, err := convert.FromListBags(req)
	if err != nil {
		return nil, err
	}
	list, err := s.bags.List(ctx, caller(ctx), f)
	if err != nil {
		return nil, err
	}
	return convert.ToBagList(list), nil
}

// moved wraps a bag transition result.
func moved(b *model.Bag, err error) (*api.Bag, error) {
	if err != nil {
		return nil, err
	}
	out := convert.ToBag(*b)
	return &out, nil
}

func (s *Server) advanceToSecurity(ctx context.Context, req *api.BagRequest) (*api.Bag, error) {
	return moved(s.bags.AdvanceToSecurity(ctx, caller(ctx), req.Ref))
}

func (s *Server) clearSecurity(ctx context.Context, req *api.BagRequest) (*api.Bag, error) {
	return moved(s.bags.ClearSecurity(ctx, caller(ctx), req.Ref))
}

func (s *Server) flagViolation(ctx context.Context, req *api.BagRequest) (*api.Bag, error) {
	return moved(s.bags.FlagViolation(ctx, caller(ctx), req.Ref, req.Description))
}

func (s *Server) loadBag(ctx context.Context, req *api.BagRequest) (*api.Bag, error) {
	return moved(s.bags.Load(ctx, caller(ctx), req.Ref))
}

// --- Boards ---

func (s *Server) postMessage(ctx context.Context, req *api.PostMessageRequest) (*api.Message, error) {
	m, err := s.escalation.Post(ctx, caller(ctx), model.BoardType(req.Board), req.Content)
	if err != nil {
		return nil, err
	}
	out := convert.ToMessage(*m)
	return &out, nil
}

func (s *Server) listBoard(ctx context.Context, req *api.ListBoardRequest) (*api.BoardFeed, error) {
	entries, err := s.escalation.Board(ctx, caller(ctx), model.BoardType(req.Board))
	if err != nil {
		return nil, err
	}
	return convert.ToBoardFeed(entries), nil
}

// directive runs one of the message-driven remediation actions.
func (s *Server) directive(ctx context.Context, req *api.DirectiveRequest,
	act func(context.Context, model.Principal, uuid.UUID) (bool, error)) (*api.DirectiveResult, error) {
	id, err := convert.ParseID("messageId", req.MessageID)
	if err != nil {
		return nil, err
	}
	handled, err := act(ctx, caller(ctx), id)
	if err != nil {
		return nil, err
	}
	return &api.DirectiveResult{Handled: handled}, nil
}

func (s *Server) handleViolation(ctx context.Context, req *api.DirectiveRequest) (*api.DirectiveResult, error) {
	return s.directive(ctx, req, s.escalation.HandleViolation)
}

func (s *Server) resolveRemoval(ctx context.Context, req *api.DirectiveRequest) (*api.DirectiveResult, error) {
	return s.directive(ctx, req, s.escalation.RemovePassenger)
}

func (s *Server) departFlight(ctx context.Context, req *api.DirectiveRequest) (*api.DirectiveResult, error) {
	return s.directive(ctx, req, s.escalation.DepartFlight)
}

func (s *Server) notifyDeparture(ctx context.Context, req *api.NotifyDepartureRequest) (*api.Message, error) {
	id, err := convert.ParseID("flightId", req.FlightID)
	if err != nil {
		return nil, err
	}
	m, err := s.escalation.NotifyDeparture(ctx, caller(ctx), id)
	if err != nil {
		return nil, err
	}
	out := convert.ToMessage(*m)
	return &out, nil
}

func (s *Server) listIssues(ctx context.Context, _ *api.Empty) (*api.IssueList, error) {
	list, err := s.escalation.Issues(ctx, caller(ctx))
	if err != nil {
		return nil, err
	}
	return convert.ToIssueList(list), nil
}
