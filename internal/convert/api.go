// Package convert maps domain types to the wire types of package api and back.
package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/api"
	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
	"github.com/and161185/bagtrack/internal/service"
)

// --- helpers ---

func id(v uuid.UUID) string {
	if v == uuid.Nil {
		return ""
	}
	return v.String()
}

func each[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

// ParseID parses a required UUID field.
func ParseID(field, s string) (uuid.UUID, error) {
	v, err := uuid.FromString(strings.TrimSpace(s))
	if err != nil || v == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s: invalid id %q: %w", field, s, errs.ErrValidation)
	}
	return v, nil
}

// parseOptionalID returns uuid.Nil for an empty field.
func parseOptionalID(field, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, nil
	}
	return ParseID(field, s)
}

// --- principals and accounts ---

// ToUser describes the principal without credentials.
func ToUser(p model.Principal) api.User {
	out := api.User{
		ID:                     p.PrincipalID().String(),
		Role:                   string(p.Role()),
		Name:                   p.DisplayName(),
		AirlineCode:            model.AirlineOf(p),
		RequiresPasswordChange: model.RequiresPasswordChange(p),
	}
	switch v := p.(type) {
	case model.AdminUser:
		out.Username = v.Username
	case model.AirlineStaffUser:
		out.Username = v.Username
	case model.GateStaffUser:
		out.Username = v.Username
	case model.GroundStaffUser:
		out.Username = v.Username
	}
	return out
}

// ToStaff drops the password hash and salt.
func ToStaff(s model.Staff) api.Staff {
	return api.Staff{
		ID:                     s.ID.String(),
		Username:               s.Username,
		FirstName:              s.FirstName,
		LastName:               s.LastName,
		Email:                  s.Email,
		Phone:                  s.Phone,
		StaffType:              string(s.StaffType),
		AirlineCode:            s.AirlineCode,
		RequiresPasswordChange: s.RequiresPasswordChange,
		CreatedAt:              s.CreatedAt,
	}
}

func ToStaffList(in []model.Staff) *api.StaffList { return &api.StaffList{Staff: each(in, ToStaff)} }

func ToStaffCredentials(c model.StaffCredentials) *api.StaffCredentials {
	return &api.StaffCredentials{Staff: ToStaff(c.Staff), Username: c.Username, Password: c.Password}
}

func FromNewStaff(in *api.NewStaffRequest) model.NewStaff {
	return model.NewStaff{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		StaffType:   model.StaffType(in.StaffType),
		AirlineCode: in.AirlineCode,
	}
}

// --- flights ---

func ToFlight(f model.Flight) api.Flight {
	return api.Flight{
		ID:           f.ID.String(),
		Code:         f.Code(),
		AirlineCode:  f.AirlineCode,
		FlightNumber: f.FlightNumber,
		AirlineName:  f.AirlineName,
		Destination:  f.Destination,
		Terminal:     f.Terminal,
		Gate:         f.Gate,
		CreatedAt:    f.CreatedAt,
	}
}

func ToFlightList(in []model.Flight) *api.FlightList { return &api.FlightList{Flights: each(in, ToFlight)} }

func FromNewFlight(in *api.NewFlightRequest) model.NewFlight {
	return model.NewFlight{
		AirlineCode:  in.AirlineCode,
		FlightNumber: in.FlightNumber,
		AirlineName:  in.AirlineName,
		Destination:  in.Destination,
		Terminal:     in.Terminal,
		Gate:         in.Gate,
	}
}

func ToReadiness(r model.Readiness) *api.Readiness {
	return &api.Readiness{
		FlightID:        r.FlightID.String(),
		TotalPassengers: r.TotalPassengers,
		Boarded:         r.Boarded,
		TotalBags:       r.TotalBags,
		LoadedBags:      r.LoadedBags,
		AllBoarded:      r.AllBoarded,
		AllLoaded:       r.AllLoaded,
		Ready:           r.Ready,
		Status:          string(r.Status),
	}
}

// --- passengers ---

func ToPassenger(p model.Passenger) api.Passenger {
	return api.Passenger{
		ID:             p.ID.String(),
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Identification: p.Identification,
		TicketNumber:   p.TicketNumber,
		FlightID:       p.FlightID.String(),
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
	}
}

func ToPassengerList(in []model.Passenger) *api.PassengerList {
	return &api.PassengerList{Passengers: each(in, ToPassenger)}
}

func FromNewPassenger(in *api.NewPassengerRequest) (model.NewPassenger, error) {
	flightID, err := ParseID("flightId", in.FlightID)
	if err != nil {
		return model.NewPassenger{}, err
	}
	return model.NewPassenger{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Identification: in.Identification,
		TicketNumber:   in.TicketNumber,
		FlightID:       flightID,
	}, nil
}

// FromCounters builds a check-in manifest, one bag per counter.
func FromCounters(counters []string) []model.BagDeclaration {
	return each(counters, func(c string) model.BagDeclaration { return model.BagDeclaration{CounterNumber: c} })
}

func ToCheckIn(p model.Passenger, bags []model.Bag) *api.CheckInResponse {
	return &api.CheckInResponse{Passenger: ToPassenger(p), Bags: each(bags, ToBag)}
}

func ToDashboard(d service.Dashboard) *api.Dashboard {
	return &api.Dashboard{Passenger: ToPassenger(d.Passenger), Flight: ToFlight(d.Flight), Bags: each(d.Bags, ToBag)}
}

func ToIssue(i model.Issue) api.Issue {
	return api.Issue{
		ID:          i.ID.String(),
		Type:        string(i.Type),
		Description: i.Description,
		PassengerID: id(i.PassengerID),
		BagID:       id(i.BagID),
		ReportedBy:  i.ReportedBy,
		CreatedAt:   i.CreatedAt,
	}
}

func ToIssueList(in []model.Issue) *api.IssueList { return &api.IssueList{Issues: each(in, ToIssue)} }

// --- bags ---

func ToBag(b model.Bag) api.Bag {
	return api.Bag{
		ID:            b.ID.String(),
		BagID:         b.BagID,
		PassengerID:   b.PassengerID.String(),
		FlightID:      b.FlightID.String(),
		Location:      string(b.Location),
		Terminal:      b.Terminal,
		CounterNumber: b.CounterNumber,
		GateNumber:    b.GateNumber,
		LocationHistory: each(b.LocationHistory, func(e model.LocationEntry) api.LocationEntry {
			return api.LocationEntry{Location: string(e.Location), Timestamp: e.Timestamp, UpdatedBy: e.UpdatedBy}
		}),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func ToBagList(in []model.Bag) *api.BagList { return &api.BagList{Bags: each(in, ToBag)} }

// FromListBags parses the optional filter fields.
func FromListBags(in *api.ListBagsRequest) (repository.BagFilter, error) {
	flightID, err := parseOptionalID("flightId", in.FlightID)
	if err != nil {
		return repository.BagFilter{}, err
	}
	passengerID, err := parseOptionalID("passengerId", in.PassengerID)
	if err != nil {
		return repository.BagFilter{}, err
	}
	return repository.BagFilter{Location: model.BagLocation(in.Location), FlightID: flightID, PassengerID: passengerID}, nil
}

// --- boards ---

func ToMessage(m model.Message) api.Message {
	var resolved *time.Time
	if m.ResolvedAt != nil {
		t := *m.ResolvedAt
		resolved = &t
	}
	return api.Message{
		ID:          m.ID.String(),
		BoardType:   string(m.BoardType),
		SenderID:    id(m.SenderID),
		SenderName:  m.SenderName,
		SenderRole:  string(m.SenderRole),
		AirlineCode: m.AirlineCode,
		MessageType: string(m.MessageType),
		FlightID:    id(m.FlightID),
		PassengerID: id(m.PassengerID),
		BagID:       id(m.BagID),
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
		ResolvedAt:  resolved,
		ResolvedBy:  m.ResolvedBy,
	}
}

func ToBoardFeed(in []model.BoardEntry) *api.BoardFeed {
	return &api.BoardFeed{Entries: each(in, func(e model.BoardEntry) api.BoardEntry {
		return api.BoardEntry{Message: ToMessage(e.Message), Action: string(e.Action)}
	})}
}
