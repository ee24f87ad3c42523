package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/bagtrack/internal/model"
)

func TestSeed_OnlyOnEmptyStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	auth, store, m := newAuth(t, &fakeLimiter{allowOK: true})
	log := zaptest.NewLogger(t)
	svc := Services{
		Auth:       auth,
		Flights:    NewFlightService(store, log, m),
		Passengers: NewPassengerService(store, log, m),
	}

	seeded, err := svc.Seed(ctx, log)
	require.NoError(t, err)
	require.True(t, seeded)

	flights, err := store.Flights.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, flights, 2)
	staff, err := store.Staff.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, staff, len(demoStaff))
	bb, err := store.Passengers.GetByTicket(ctx, "5678000001")
	require.NoError(t, err)
	f, err := store.Flights.GetByID(ctx, bb.FlightID)
	require.NoError(t, err)
	require.Equal(t, "BB5678", f.Code())
	require.Equal(t, model.PassengerNotCheckedIn, bb.Status)

	seeded, err = svc.Seed(ctx, log)
	require.NoError(t, err)
	require.False(t, seeded)
}
