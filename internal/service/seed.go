package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/bagtrack/internal/limiter"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

// Services bundles the workflow services sharing one store.
type Services struct {
	Auth       *AuthServiceImpl
	Flights    *FlightServiceImpl
	Passengers *PassengerServiceImpl
	Bags       *BagServiceImpl
	Escalation *EscalationServiceImpl
}

// NewServices builds every service over one store.
func NewServices(store repository.Store, signKey []byte, ttl time.Duration, lim limiter.Limiter, log *zap.Logger, m *metrics.Metrics) Services {
	return Services{
		Auth:       NewAuthService(store, signKey, ttl, lim, log, m),
		Flights:    NewFlightService(store, log, m),
		Passengers: NewPassengerService(store, log, m),
		Bags:       NewBagService(store, log, m),
		Escalation: NewEscalationService(store, log, m),
	}
}

var demoFlights = []model.NewFlight{
	{AirlineCode: "AA", FlightNumber: "1234", AirlineName: "American Airlines", Destination: "Lisbon", Terminal: "T1", Gate: "A1"},
	{AirlineCode: "BB", FlightNumber: "5678", AirlineName: "Blue Bird", Destination: "Oslo", Terminal: "T1", Gate: "B2"},
}

var demoPassengers = []model.NewPassenger{
	{FirstName: "Jane", LastName: "Doe", Identification: "123456", TicketNumber: "1234567890"},
	{FirstName: "John", LastName: "Roe", Identification: "654321", TicketNumber: "1234567891"},
	{FirstName: "Mia", LastName: "Chen", Identification: "111222", TicketNumber: "5678000001"},
}

var demoStaff = []model.NewStaff{
	{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Phone: "5550000001", StaffType: model.StaffAirline, AirlineCode: "AA"},
	{FirstName: "Gil", LastName: "Moss", Email: "gil@example.com", Phone: "5550000002", StaffType: model.StaffGate, AirlineCode: "AA"},
	{FirstName: "Bob", LastName: "Ray", Email: "bob@example.com", Phone: "5550000003", StaffType: model.StaffAirline, AirlineCode: "BB"},
	{FirstName: "Gus", LastName: "Hart", Email: "gus@example.com", Phone: "5550000004", StaffType: model.StaffGate, AirlineCode: "BB"},
	{FirstName: "Rob", LastName: "Fox", Email: "rob@example.com", Phone: "5550000005", StaffType: model.StaffGround},
}

// Seed loads demo flights, passengers and one account per staff role unless
// flights already exist. Generated staff credentials are logged once.
func (s Services) Seed(ctx context.Context, log *zap.Logger) (bool, error) {
	a, err := s.Auth.store.Admin.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("seed needs the administrator: %w", err)
	}
	p := model.AdminPrincipal(*a)

	existing, err := s.Flights.List(ctx, p, "")
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	byAirline := map[string]*model.Flight{}
	for _, in := range demoFlights {
		f, err := s.Flights.Create(ctx, p, in)
		if err != nil {
			return false, fmt.Errorf("seed flight %s%s: %w", in.AirlineCode, in.FlightNumber, err)
		}
		byAirline[f.AirlineCode] = f
	}
	for _, in := range demoPassengers {
		in.FlightID = byAirline["AA"].ID
		if in.TicketNumber[:4] == "5678" {
			in.FlightID = byAirline["BB"].ID
		}
		if _, err := s.Passengers.Create(ctx, p, in); err != nil {
			return false, fmt.Errorf("seed passenger %s: %w", in.TicketNumber, err)
		}
	}
	for _, in := range demoStaff {
		c, err := s.Auth.CreateStaff(ctx, p, in)
		if err != nil {
			return false, fmt.Errorf("seed staff %s %s: %w", in.FirstName, in.LastName, err)
		}
		log.Info("demo staff account", zap.String("type", string(in.StaffType)), zap.String("airline", in.AirlineCode),
			zap.String("username", c.Username), zap.String("password", c.Password))
	}
	return true, nil
}
