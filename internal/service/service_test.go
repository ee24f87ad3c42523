package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
	"github.com/and161185/bagtrack/internal/repository/memory"
)

var (
	admin   = model.AdminUser{ID: uuid.Must(uuid.NewV4()), Username: AdminUsername, FirstName: "System", LastName: "Administrator"}
	aaAgent = model.AirlineStaffUser{ID: uuid.Must(uuid.NewV4()), Username: "an10", FirstName: "Ann", LastName: "Lee", AirlineCode: "AA"}
	bbAgent = model.AirlineStaffUser{ID: uuid.Must(uuid.NewV4()), Username: "bo20", FirstName: "Bob", LastName: "Ray", AirlineCode: "BB"}
	aaGate  = model.GateStaffUser{ID: uuid.Must(uuid.NewV4()), Username: "gi30", FirstName: "Gil", LastName: "Moss", AirlineCode: "AA"}
	bbGate  = model.GateStaffUser{ID: uuid.Must(uuid.NewV4()), Username: "gu31", FirstName: "Gus", LastName: "Hart", AirlineCode: "BB"}
	ground  = model.GroundStaffUser{ID: uuid.Must(uuid.NewV4()), Username: "ro40", FirstName: "Rob", LastName: "Fox"}
)

type env struct {
	store      repository.Store
	m          *metrics.Metrics
	flights    *FlightServiceImpl
	passengers *PassengerServiceImpl
	bags       *BagServiceImpl
	esc        *EscalationServiceImpl
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New().Repositories()
	m := metrics.New(prometheus.NewRegistry())
	log := zaptest.NewLogger(t)
	return &env{
		store:      store,
		m:          m,
		flights:    NewFlightService(store, log, m),
		passengers: NewPassengerService(store, log, m),
		bags:       NewBagService(store, log, m),
		esc:        NewEscalationService(store, log, m),
	}
}

func (e *env) flight(t *testing.T, airline, number, terminal, gate string) *model.Flight {
	t.Helper()
	f, err := e.flights.Create(context.Background(), admin, model.NewFlight{
		AirlineCode: airline, FlightNumber: number, Destination: "Lisbon", Terminal: terminal, Gate: gate,
	})
	require.NoError(t, err)
	return f
}

func (e *env) passenger(t *testing.T, flightID uuid.UUID, ticket string) *model.Passenger {
	t.Helper()
	p, err := e.passengers.Create(context.Background(), admin, model.NewPassenger{
		FirstName: "Jane", LastName: "Doe", Identification: "123456", TicketNumber: ticket, FlightID: flightID,
	})
	require.NoError(t, err)
	return p
}

func manifest(counters ...string) []model.BagDeclaration {
	out := make([]model.BagDeclaration, len(counters))
	for i, c := range counters {
		out[i] = model.BagDeclaration{CounterNumber: c}
	}
	return out
}

// toGate checks in the passenger with the given counters and clears every bag to the gate.
func (e *env) toGate(t *testing.T, ticket string, counters ...string) []model.Bag {
	t.Helper()
	ctx := context.Background()
	_, bags, err := e.passengers.CheckIn(ctx, aaAgent, ticket, manifest(counters...))
	require.NoError(t, err)
	for i := range bags {
		_, err := e.bags.AdvanceToSecurity(ctx, ground, bags[i].BagID)
		require.NoError(t, err)
		b, err := e.bags.ClearSecurity(ctx, ground, bags[i].ID.String())
		require.NoError(t, err)
		bags[i] = *b
	}
	return bags
}

func (e *env) board(t *testing.T, p model.Principal, board model.BoardType) []model.BoardEntry {
	t.Helper()
	entries, err := e.esc.Board(context.Background(), p, board)
	require.NoError(t, err)
	return entries
}

func TestScenario_AA1234_EndsReady(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	f := e.flight(t, "aa", "1234", "t1", "a1")
	require.Equal(t, "AA", f.AirlineCode)
	require.Equal(t, "A1", f.Gate)
	e.passenger(t, f.ID, "1234567890")

	pa, bags, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1", "C2"))
	require.NoError(t, err)
	require.Equal(t, model.PassengerCheckedIn, pa.Status)
	require.Len(t, bags, 2)
	require.NotEqual(t, bags[0].BagID, bags[1].BagID)
	for _, b := range bags {
		require.Equal(t, model.BagCheckIn, b.Location)
		require.Equal(t, "T1", b.Terminal)
		require.Len(t, b.LocationHistory, 1)
	}

	for _, b := range bags {
		_, err := e.bags.AdvanceToSecurity(ctx, ground, b.BagID)
		require.NoError(t, err)
	}
	for _, b := range bags {
		got, err := e.bags.ClearSecurity(ctx, ground, b.BagID)
		require.NoError(t, err)
		require.Equal(t, model.BagGate, got.Location)
		require.Equal(t, "A1", got.GateNumber)
	}

	pa, err = e.passengers.Board(ctx, aaGate, "1234567890", "A1")
	require.NoError(t, err)
	require.Equal(t, model.PassengerBoarded, pa.Status)

	r, err := e.flights.Readiness(ctx, aaGate, f.ID)
	require.NoError(t, err)
	require.False(t, r.Ready)
	require.Equal(t, model.FlightBoarding, r.Status)

	for _, b := range bags {
		got, err := e.bags.Load(ctx, ground, b.BagID)
		require.NoError(t, err)
		require.Equal(t, model.BagLoaded, got.Location)
		var path []model.BagLocation
		for _, h := range got.LocationHistory {
			path = append(path, h.Location)
		}
		require.Equal(t, "Ann Lee", got.LocationHistory[0].UpdatedBy)
		require.Equal(t, "Rob Fox", got.LocationHistory[3].UpdatedBy)
		require.Equal(t, []model.BagLocation{model.BagCheckIn, model.BagSecurity, model.BagGate, model.BagLoaded}, path)
	}

	r, err = e.flights.Readiness(ctx, admin, f.ID)
	require.NoError(t, err)
	require.True(t, r.Ready)
	require.Equal(t, model.FlightReady, r.Status)
	require.Equal(t, 2, r.LoadedBags)

	require.Equal(t, 2.0, testutil.ToFloat64(e.m.BagTransitions.WithLabelValues(string(model.BagLoaded))))
	require.Equal(t, 1.0, testutil.ToFloat64(e.m.PassengerTransitions.WithLabelValues(string(model.PassengerBoarded))))
}

func TestFlight_Create_Conflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.flight(t, "AA", "1234", "T1", "A1")

	_, err := e.flights.Create(ctx, admin, model.NewFlight{AirlineCode: "AA", FlightNumber: "1234", Terminal: "T2", Gate: "B1"})
	require.ErrorIs(t, err, errs.ErrConflict)

	_, err = e.flights.Create(ctx, admin, model.NewFlight{AirlineCode: "BB", FlightNumber: "5678", Terminal: "T1", Gate: "A1"})
	require.ErrorIs(t, err, errs.ErrConflict)

	_, err = e.flights.Create(ctx, admin, model.NewFlight{AirlineCode: "B1", FlightNumber: "5678", Terminal: "T1", Gate: "A2"})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = e.flights.Create(ctx, admin, model.NewFlight{AirlineCode: "BB", FlightNumber: "567", Terminal: "T1", Gate: "A2"})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = e.flights.Create(ctx, aaAgent, model.NewFlight{AirlineCode: "BB", FlightNumber: "5678", Terminal: "T1", Gate: "A2"})
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = e.flights.Create(ctx, nil, model.NewFlight{AirlineCode: "BB", FlightNumber: "5678", Terminal: "T1", Gate: "A2"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	list, err := e.flights.List(ctx, ground, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestFlight_ReassignGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	e.flight(t, "BB", "5678", "T1", "B1")
	e.passenger(t, f.ID, "1234567890")
	cleared := e.toGate(t, "1234567890", "C1")

	_, err := e.flights.ReassignGate(ctx, aaGate, f.ID, "T1", "B1")
	require.ErrorIs(t, err, errs.ErrConflict)

	_, err = e.flights.ReassignGate(ctx, bbGate, f.ID, "T1", "C9")
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = e.flights.ReassignGate(ctx, aaAgent, f.ID, "T1", "C9")
	require.ErrorIs(t, err, errs.ErrForbidden)

	same, err := e.flights.ReassignGate(ctx, aaGate, f.ID, "t1", "a1")
	require.NoError(t, err)
	require.Equal(t, "A1", same.Gate)
	require.Empty(t, e.board(t, ground, model.BoardGround))

	moved, err := e.flights.ReassignGate(ctx, aaGate, f.ID, "T2", "C3")
	require.NoError(t, err)
	require.Equal(t, "T2", moved.Terminal)
	require.Equal(t, "C3", moved.Gate)

	feed := e.board(t, ground, model.BoardGround)
	require.Len(t, feed, 1)
	require.Equal(t, model.MsgGateChange, feed[0].Message.MessageType)
	require.Equal(t, f.ID, feed[0].Message.FlightID)
	require.Contains(t, feed[0].Message.Content, "T1/A1")
	require.Contains(t, feed[0].Message.Content, "T2/C3")
	require.Equal(t, model.ActionNone, feed[0].Action)

	b, err := e.bags.Get(ctx, ground, cleared[0].ID)
	require.NoError(t, err)
	require.Equal(t, "A1", b.GateNumber, "cleared bags keep the gate they were cleared for")

	_, err = e.flights.Create(ctx, admin, model.NewFlight{AirlineCode: "CC", FlightNumber: "1111", Terminal: "T1", Gate: "A1"})
	require.NoError(t, err, "old gate is free after the move")
}

func TestFlight_Remove_Cascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	e.passenger(t, f.ID, "1234567890")
	e.passenger(t, f.ID, "1234567891")
	_, _, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1", "C2"))
	require.NoError(t, err)

	require.ErrorIs(t, e.flights.Remove(ctx, aaGate, f.ID), errs.ErrForbidden)
	require.NoError(t, e.flights.Remove(ctx, admin, f.ID))
	require.ErrorIs(t, e.flights.Remove(ctx, admin, f.ID), errs.ErrNotFound)

	_, err = e.store.Passengers.GetByTicket(ctx, "1234567890")
	require.ErrorIs(t, err, errs.ErrNotFound)
	bags, err := e.store.Bags.List(ctx, repository.BagFilter{})
	require.NoError(t, err)
	require.Empty(t, bags)
	require.Equal(t, 2.0, testutil.ToFloat64(e.m.BagsRemoved))
}

func TestPassenger_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	p := e.passenger(t, f.ID, "1234567890")
	require.Equal(t, model.PassengerNotCheckedIn, p.Status)

	in := model.NewPassenger{FirstName: "John", LastName: "Roe", Identification: "654321", TicketNumber: "1234567890", FlightID: f.ID}
	_, err := e.passengers.Create(ctx, admin, in)
	require.ErrorIs(t, err, errs.ErrConflict)

	in.TicketNumber = "12345"
	_, err = e.passengers.Create(ctx, admin, in)
	require.ErrorIs(t, err, errs.ErrValidation)

	in.TicketNumber = "2234567890"
	in.FlightID = uuid.Must(uuid.NewV4())
	_, err = e.passengers.Create(ctx, admin, in)
	require.ErrorIs(t, err, errs.ErrNotFound)

	list, err := e.passengers.ListByFlight(ctx, aaAgent, f.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestPassenger_CheckIn_BlankCounterIsAtomic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	p := e.passenger(t, f.ID, "1234567890")

	_, _, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1", "  "))
	require.ErrorIs(t, err, errs.ErrValidation)

	got, err := e.passengers.Get(ctx, aaAgent, p.ID)
	require.NoError(t, err)
	require.Equal(t, model.PassengerNotCheckedIn, got.Status)
	bags, err := e.store.Bags.List(ctx, repository.BagFilter{PassengerID: p.ID})
	require.NoError(t, err)
	require.Empty(t, bags)
}

func TestPassenger_CheckIn_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	e.passenger(t, f.ID, "1234567890")

	tests := []struct {
		name   string
		p      model.Principal
		ticket string
		want   error
	}{
		{"unknown ticket", aaAgent, "9999999999", errs.ErrNotFound},
		{"malformed ticket", aaAgent, "12ab", errs.ErrValidation},
		{"other airline", bbAgent, "1234567890", errs.ErrForbidden},
		{"gate staff", aaGate, "1234567890", errs.ErrForbidden},
		{"anonymous", nil, "1234567890", errs.ErrUnauthorized},
	}
	for _, tt := range tests {
		_, _, err := e.passengers.CheckIn(ctx, tt.p, tt.ticket, manifest("C1"))
		require.ErrorIs(t, err, tt.want, tt.name)
	}

	_, bags, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", nil)
	require.NoError(t, err)
	require.Empty(t, bags)
	_, _, err = e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1"))
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestPassenger_Board(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	e.passenger(t, f.ID, "1234567890")

	_, err := e.passengers.Board(ctx, aaGate, "1234567890", "")
	require.ErrorIs(t, err, errs.ErrInvalidState, "not checked in")

	_, bags, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1", "C2"))
	require.NoError(t, err)
	_, err = e.bags.AdvanceToSecurity(ctx, ground, bags[0].BagID)
	require.NoError(t, err)
	_, err = e.bags.ClearSecurity(ctx, ground, bags[0].BagID)
	require.NoError(t, err)

	_, err = e.passengers.Board(ctx, aaGate, "1234567890", "")
	require.ErrorIs(t, err, errs.ErrInvalidState)
	require.Contains(t, err.Error(), bags[1].BagID)
	require.NotContains(t, err.Error(), bags[0].BagID)

	_, err = e.bags.AdvanceToSecurity(ctx, ground, bags[1].BagID)
	require.NoError(t, err)
	_, err = e.bags.ClearSecurity(ctx, ground, bags[1].BagID)
	require.NoError(t, err)

	_, err = e.passengers.Board(ctx, aaGate, "1234567890", "B7")
	require.ErrorIs(t, err, errs.ErrForbidden, "wrong gate")
	_, err = e.passengers.Board(ctx, bbGate, "1234567890", "")
	require.ErrorIs(t, err, errs.ErrForbidden, "other airline")

	p, err := e.passengers.Board(ctx, aaGate, "1234567890", "a1")
	require.NoError(t, err)
	require.Equal(t, model.PassengerBoarded, p.Status)

	_, err = e.passengers.Board(ctx, aaGate, "1234567890", "")
	require.ErrorIs(t, err, errs.ErrInvalidState, "already boarded")
}

func TestPassenger_ReportIssue_RoutesDirective(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	p := e.passenger(t, f.ID, "1234567890")

	issue, err := e.passengers.ReportIssue(ctx, ground, "1234567890", model.IssueSecurityViolation, "liquid in cabin bag")
	require.NoError(t, err)
	require.Equal(t, p.ID, issue.PassengerID)

	feed := e.board(t, aaAgent, model.BoardAirline)
	require.Len(t, feed, 1)
	require.Equal(t, model.MsgSecurityViolation, feed[0].Message.MessageType)
	require.Equal(t, model.ActionHandleViolation, feed[0].Action)
	require.Empty(t, e.board(t, bbAgent, model.BoardAirline))

	_, err = e.passengers.ReportIssue(ctx, aaGate, "1234567890", model.IssuePassengerRemoval, "unruly")
	require.NoError(t, err)
	adminFeed := e.board(t, admin, model.BoardAdmin)
	require.Len(t, adminFeed, 1)
	require.Equal(t, model.ActionRemovePassenger, adminFeed[0].Action)

	_, err = e.passengers.ReportIssue(ctx, bbGate, "1234567890", model.IssuePassengerRemoval, "unruly")
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = e.passengers.ReportIssue(ctx, ground, "1234567890", "lost", "x")
	require.ErrorIs(t, err, errs.ErrValidation)

	got, err := e.passengers.Get(ctx, admin, p.ID)
	require.NoError(t, err)
	require.Equal(t, model.PassengerNotCheckedIn, got.Status)
}

func TestPassenger_Dashboard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	p := e.passenger(t, f.ID, "1234567890")
	_, _, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1"))
	require.NoError(t, err)

	d, err := e.passengers.Dashboard(ctx, model.PassengerPrincipal(*p))
	require.NoError(t, err)
	require.Equal(t, "AA1234", d.Flight.Code())
	require.Equal(t, model.PassengerCheckedIn, d.Passenger.Status)
	require.Len(t, d.Bags, 1)

	_, err = e.passengers.Dashboard(ctx, aaAgent)
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = e.passengers.Get(ctx, model.PassengerPrincipal(*p), p.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestBag_TransitionsOutsideGraphFail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	e.passenger(t, f.ID, "1234567890")
	_, bags, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1"))
	require.NoError(t, err)
	code := bags[0].BagID

	_, err = e.bags.ClearSecurity(ctx, ground, code)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = e.bags.Load(ctx, ground, code)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = e.bags.AdvanceToSecurity(ctx, aaAgent, code)
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = e.bags.AdvanceToSecurity(ctx, ground, "not-a-bag")
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = e.bags.AdvanceToSecurity(ctx, ground, uuid.Must(uuid.NewV4()).String())
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = e.bags.AdvanceToSecurity(ctx, ground, code)
	require.NoError(t, err)
	flagged, err := e.bags.FlagViolation(ctx, ground, code, "prohibited item")
	require.NoError(t, err)
	require.Equal(t, model.BagSecurityViolation, flagged.Location)

	for _, op := range []func(context.Context, model.Principal, string) (*model.Bag, error){
		e.bags.AdvanceToSecurity, e.bags.ClearSecurity, e.bags.Load,
	} {
		_, err := op(ctx, ground, code)
		require.ErrorIs(t, err, errs.ErrInvalidState)
	}
	got, err := e.bags.FindByCode(ctx, aaAgent, code)
	require.NoError(t, err)
	require.Len(t, got.LocationHistory, 3)

	list, err := e.bags.List(ctx, ground, repository.BagFilter{Location: model.BagSecurityViolation})
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = e.bags.List(ctx, ground, repository.BagFilter{Location: "hold"})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestBag_Load_RequiresBoardedPassenger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	e.passenger(t, f.ID, "1234567890")
	bags := e.toGate(t, "1234567890", "C1", "C2")

	_, err := e.bags.Load(ctx, ground, bags[0].BagID)
	require.ErrorIs(t, err, errs.ErrPrecondition)
	require.Contains(t, err.Error(), "passenger not boarded")

	got, err := e.bags.Get(ctx, ground, bags[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.BagGate, got.Location, "failed load leaves the bag untouched")
	require.Len(t, got.LocationHistory, 3)

	_, err = e.passengers.Board(ctx, aaGate, "1234567890", "")
	require.NoError(t, err)
	loaded, err := e.bags.Load(ctx, ground, bags[0].BagID)
	require.NoError(t, err)
	require.Equal(t, model.BagLoaded, loaded.Location)
}

func TestEscalation_HandleViolationTwice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	p := e.passenger(t, f.ID, "1234567890")
	_, bags, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1", "C2"))
	require.NoError(t, err)
	_, err = e.bags.AdvanceToSecurity(ctx, ground, bags[0].BagID)
	require.NoError(t, err)
	_, err = e.bags.FlagViolation(ctx, ground, bags[0].BagID, "knife")
	require.NoError(t, err)

	feed := e.board(t, aaAgent, model.BoardAirline)
	require.Len(t, feed, 1)
	directive := feed[0].Message
	require.Equal(t, bags[0].ID, directive.BagID)
	require.Equal(t, p.ID, directive.PassengerID)
	require.Equal(t, model.ActionHandleViolation, feed[0].Action)
	require.Empty(t, e.board(t, bbAgent, model.BoardAirline))

	_, err = e.esc.HandleViolation(ctx, bbAgent, directive.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)

	handled, err := e.esc.HandleViolation(ctx, aaAgent, directive.ID)
	require.NoError(t, err)
	require.True(t, handled)
	handled, err = e.esc.HandleViolation(ctx, aaAgent, directive.ID)
	require.NoError(t, err)
	require.False(t, handled)

	left, err := e.store.Bags.List(ctx, repository.BagFilter{PassengerID: p.ID})
	require.NoError(t, err)
	require.Empty(t, left)
	require.Equal(t, 2.0, testutil.ToFloat64(e.m.BagsRemoved))

	adminFeed := e.board(t, admin, model.BoardAdmin)
	require.Len(t, adminFeed, 1)
	require.Equal(t, model.MsgRemovePassenger, adminFeed[0].Message.MessageType)
	require.Equal(t, model.ActionRemovePassenger, adminFeed[0].Action)
	require.Equal(t, model.ActionNone, e.board(t, aaAgent, model.BoardAirline)[0].Action)

	issues, err := e.esc.Issues(ctx, admin)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	_, err = e.esc.Issues(ctx, aaAgent)
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = e.esc.RemovePassenger(ctx, admin, directive.ID)
	require.ErrorIs(t, err, errs.ErrValidation, "wrong directive type")

	removed, err := e.esc.RemovePassenger(ctx, admin, adminFeed[0].Message.ID)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = e.esc.RemovePassenger(ctx, admin, adminFeed[0].Message.ID)
	require.NoError(t, err)
	require.False(t, removed)

	_, err = e.store.Passengers.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Equal(t, model.ActionNone, e.board(t, admin, model.BoardAdmin)[0].Action)
	require.Equal(t, 2.0, testutil.ToFloat64(e.m.DirectivesResolved.WithLabelValues(string(model.MsgSecurityViolation)))+
		testutil.ToFloat64(e.m.DirectivesResolved.WithLabelValues(string(model.MsgRemovePassenger))))
}

func TestEscalation_SecondViolationDoesNotDuplicateRemoval(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	e.passenger(t, f.ID, "1234567890")
	_, bags, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1", "C2"))
	require.NoError(t, err)
	for _, b := range bags {
		_, err = e.bags.AdvanceToSecurity(ctx, ground, b.BagID)
		require.NoError(t, err)
		_, err = e.bags.FlagViolation(ctx, ground, b.BagID, "battery")
		require.NoError(t, err)
	}

	for _, entry := range e.board(t, aaAgent, model.BoardAirline) {
		handled, err := e.esc.HandleViolation(ctx, aaAgent, entry.Message.ID)
		require.NoError(t, err)
		require.True(t, handled)
	}
	require.Len(t, e.board(t, admin, model.BoardAdmin), 1)
}

func TestEscalation_ViolationAfterPassengerRemoved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")
	p := e.passenger(t, f.ID, "1234567890")
	_, bags, err := e.passengers.CheckIn(ctx, aaAgent, "1234567890", manifest("C1"))
	require.NoError(t, err)
	_, err = e.bags.AdvanceToSecurity(ctx, ground, bags[0].BagID)
	require.NoError(t, err)
	_, err = e.bags.FlagViolation(ctx, ground, bags[0].BagID, "knife")
	require.NoError(t, err)
	require.NoError(t, e.passengers.Remove(ctx, admin, p.ID))

	feed := e.board(t, aaAgent, model.BoardAirline)
	require.Equal(t, model.ActionNone, feed[0].Action, "stale directive offers no action")

	handled, err := e.esc.HandleViolation(ctx, aaAgent, feed[0].Message.ID)
	require.NoError(t, err)
	require.False(t, handled)
	require.Empty(t, e.board(t, admin, model.BoardAdmin))
}

func TestEscalation_DepartFlight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	f := e.flight(t, "AA", "1234", "T1", "A1")

	_, err := e.esc.NotifyDeparture(ctx, aaGate, f.ID)
	require.ErrorIs(t, err, errs.ErrPrecondition, "no passengers is never ready")

	e.passenger(t, f.ID, "1234567890")
	_, _, err = e.passengers.CheckIn(ctx, aaAgent, "1234567890", nil)
	require.NoError(t, err)
	_, err = e.esc.NotifyDeparture(ctx, aaGate, f.ID)
	require.ErrorIs(t, err, errs.ErrPrecondition)

	_, err = e.passengers.Board(ctx, aaGate, "1234567890", "")
	require.NoError(t, err)
	_, err = e.esc.NotifyDeparture(ctx, bbGate, f.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)

	msg, err := e.esc.NotifyDeparture(ctx, aaGate, f.ID)
	require.NoError(t, err)
	require.Equal(t, model.BoardAdmin, msg.BoardType)
	require.Contains(t, msg.Content, "Lisbon")
	require.Contains(t, msg.Content, "1 passengers boarded")

	feed := e.board(t, admin, model.BoardAdmin)
	require.Len(t, feed, 1)
	require.Equal(t, model.ActionDepartFlight, feed[0].Action)

	_, err = e.esc.DepartFlight(ctx, aaGate, msg.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)

	departed, err := e.esc.DepartFlight(ctx, admin, msg.ID)
	require.NoError(t, err)
	require.True(t, departed)
	departed, err = e.esc.DepartFlight(ctx, admin, msg.ID)
	require.NoError(t, err)
	require.False(t, departed)

	_, err = e.flights.Get(ctx, admin, f.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Equal(t, model.ActionNone, e.board(t, admin, model.BoardAdmin)[0].Action)

	_, err = e.esc.DepartFlight(ctx, admin, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEscalation_PostPermissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	pax := model.PassengerUser{ID: uuid.Must(uuid.NewV4()), FirstName: "Jane", LastName: "Doe"}

	tests := []struct {
		p     model.Principal
		board model.BoardType
		want  error
	}{
		{aaAgent, model.BoardAirline, nil},
		{aaGate, model.BoardGate, nil},
		{ground, model.BoardGround, nil},
		{admin, model.BoardAirline, nil},
		{admin, model.BoardGround, nil},
		{ground, model.BoardAirline, errs.ErrForbidden},
		{aaAgent, model.BoardAdmin, errs.ErrForbidden},
		{pax, model.BoardGround, errs.ErrForbidden},
		{nil, model.BoardGround, errs.ErrUnauthorized},
		{admin, "lounge", errs.ErrValidation},
	}
	for i, tt := range tests {
		_, err := e.esc.Post(ctx, tt.p, tt.board, fmt.Sprintf("note %d", i))
		if tt.want == nil {
			require.NoError(t, err, i)
		} else {
			require.ErrorIs(t, err, tt.want, i)
		}
	}

	long := make([]rune, model.MaxMessageLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err := e.esc.Post(ctx, ground, model.BoardGround, string(long))
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = e.esc.Post(ctx, ground, model.BoardGround, "   ")
	require.ErrorIs(t, err, errs.ErrValidation)

	feed := e.board(t, ground, model.BoardGround)
	require.Len(t, feed, 2)
	require.Equal(t, "note 4", feed[0].Message.Content, "newest first")
	require.Equal(t, "note 2", feed[1].Message.Content)
}
