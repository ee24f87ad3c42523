package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/limiter"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
	"github.com/and161185/bagtrack/internal/repository/memory"
)

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	lastKey      string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, key string, _ []byte) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastKey = key
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

const adminPassword = "Admin123"

func newAuth(t *testing.T, lim limiter.Limiter) (*AuthServiceImpl, repository.Store, *metrics.Metrics) {
	t.Helper()
	store := memory.New().Repositories()
	m := metrics.New(prometheus.NewRegistry())
	s := NewAuthService(store, []byte("secret"), time.Hour, lim, zaptest.NewLogger(t), m)
	created, err := s.EnsureAdmin(context.Background(), adminPassword)
	require.NoError(t, err)
	require.True(t, created)
	return s, store, m
}

func adminCreds(pw string) Credentials { return Credentials{Username: AdminUsername, Password: pw} }

func TestAuth_EnsureAdmin_Idempotent(t *testing.T) {
	t.Parallel()
	s, store, _ := newAuth(t, &fakeLimiter{allowOK: true})

	created, err := s.EnsureAdmin(context.Background(), "Other123")
	require.NoError(t, err)
	require.False(t, created)

	a, err := store.Admin.Get(context.Background())
	require.NoError(t, err)
	require.True(t, a.RequiresPasswordChange)
	require.NotEmpty(t, a.Salt)

	_, err = s.EnsureAdmin(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestAuth_Login_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lim := &fakeLimiter{allowOK: true}
	s, _, m := newAuth(t, lim)

	lim.allowErr = errors.New("lim-err")
	_, _, err := s.Login(ctx, model.RoleAdministrator, adminCreds(adminPassword), "1.2.3.4")
	require.Error(t, err)
	lim.allowErr = nil

	lim.allowOK = false
	_, _, err = s.Login(ctx, model.RoleAdministrator, adminCreds(adminPassword), "1.2.3.4")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	lim.allowOK = true

	_, _, err = s.Login(ctx, model.RoleAdministrator, Credentials{Username: "nope", Password: adminPassword}, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	lim.failBlocked = true
	_, _, err = s.Login(ctx, model.RoleAdministrator, adminCreds("wrong"), "")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	lim.failBlocked = false

	_, _, err = s.Login(ctx, model.RoleAdministrator, adminCreds("wrong"), "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.Equal(t, 3, lim.failureCalls)

	_, _, err = s.Login(ctx, "pilot", adminCreds(adminPassword), "")
	require.ErrorIs(t, err, errs.ErrValidation)

	tok, p, err := s.Login(ctx, model.RoleAdministrator, adminCreds(adminPassword), "127.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.True(t, tok.ExpiresAt.After(time.Now()))
	require.True(t, model.RequiresPasswordChange(p))
	require.Equal(t, 1, lim.successCalls)
	require.Equal(t, "administrator:admin", lim.lastKey)
	require.Equal(t, 3.0, testutil.ToFloat64(m.LoginFailures.WithLabelValues("administrator", "credentials")))
}

func TestAuth_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, store, _ := newAuth(t, &fakeLimiter{allowOK: true})

	tok, _, err := s.Login(ctx, model.RoleAdministrator, adminCreds(adminPassword), "")
	require.NoError(t, err)

	p, err := s.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.IsType(t, model.AdminUser{}, p)

	_, err = s.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: uuid.Must(uuid.NewV4()).String()}).
		SignedString([]byte("other-key"))
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, forged)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: uuid.Must(uuid.NewV4()).String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, unsigned)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	claims, sid, err := s.parse(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, p.PrincipalID().String(), claims.Subject)

	s.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = s.Authenticate(ctx, tok.AccessToken)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = store.Sessions.Get(ctx, sid)
	require.ErrorIs(t, err, errs.ErrNotFound, "expired session is deleted lazily")
}

func TestAuth_Logout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newAuth(t, &fakeLimiter{allowOK: true})

	tok, _, err := s.Login(ctx, model.RoleAdministrator, adminCreds(adminPassword), "")
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx, tok.AccessToken))
	_, err = s.Authenticate(ctx, tok.AccessToken)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.ErrorIs(t, s.Logout(ctx, "garbage"), errs.ErrUnauthorized)
}

func TestAuth_ChangePassword_Admin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newAuth(t, &fakeLimiter{allowOK: true})
	_, p, err := s.Login(ctx, model.RoleAdministrator, adminCreds(adminPassword), "")
	require.NoError(t, err)

	require.ErrorIs(t, s.ChangePassword(ctx, p, "wrong", "NewPass1"), errs.ErrUnauthorized)
	require.ErrorIs(t, s.ChangePassword(ctx, p, "wrong", "weak"), errs.ErrUnauthorized, "policy is not reported before the current password is verified")
	require.ErrorIs(t, s.ChangePassword(ctx, p, "Guess123", "Guess123"), errs.ErrUnauthorized)
	require.ErrorIs(t, s.ChangePassword(ctx, p, adminPassword, "weak"), errs.ErrValidation)
	require.ErrorIs(t, s.ChangePassword(ctx, p, adminPassword, adminPassword), errs.ErrValidation)
	require.ErrorIs(t, s.ChangePassword(ctx, model.PassengerUser{}, "a", "NewPass1"), errs.ErrForbidden)
	require.ErrorIs(t, s.ChangePassword(ctx, nil, "a", "NewPass1"), errs.ErrUnauthorized)

	require.NoError(t, s.ChangePassword(ctx, p, adminPassword, "NewPass1"))

	_, _, err = s.Login(ctx, model.RoleAdministrator, adminCreds(adminPassword), "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, p, err = s.Login(ctx, model.RoleAdministrator, adminCreds("NewPass1"), "")
	require.NoError(t, err)
	require.False(t, model.RequiresPasswordChange(p))
}

func TestAuth_Staff_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newAuth(t, &fakeLimiter{allowOK: true})

	in := model.NewStaff{
		FirstName: "Gil", LastName: "Moss", Email: "gil@example.com", Phone: "5551234567",
		StaffType: model.StaffGate, AirlineCode: "aa",
	}
	_, err := s.CreateStaff(ctx, aaAgent, in)
	require.ErrorIs(t, err, errs.ErrForbidden)

	bad := in
	bad.StaffType = model.StaffGround
	_, err = s.CreateStaff(ctx, admin, bad)
	require.ErrorIs(t, err, errs.ErrValidation, "ground staff with airline")

	creds, err := s.CreateStaff(ctx, admin, in)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[A-Za-z]{2}\d{2}$`), creds.Username)
	require.NoError(t, model.ValidatePassword(creds.Password))
	require.True(t, creds.Staff.RequiresPasswordChange)
	require.Equal(t, "AA", creds.Staff.AirlineCode)

	login := Credentials{Username: creds.Username, Password: creds.Password}
	_, _, err = s.Login(ctx, model.RoleAirlineStaff, login, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized, "role must match staff type")

	tok, p, err := s.Login(ctx, model.RoleGateStaff, login, "")
	require.NoError(t, err)
	gate, ok := p.(model.GateStaffUser)
	require.True(t, ok)
	require.Equal(t, "AA", gate.AirlineCode)

	require.NoError(t, s.ChangePassword(ctx, p, creds.Password, "Rotated9"))
	p, err = s.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.False(t, model.RequiresPasswordChange(p))

	list, err := s.ListStaff(ctx, admin, model.StaffGate)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = s.ListStaff(ctx, admin, "pilot")
	require.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, s.RemoveStaff(ctx, admin, creds.Staff.ID))
	_, err = s.Authenticate(ctx, tok.AccessToken)
	require.ErrorIs(t, err, errs.ErrUnauthorized, "removed staff lose their session")
}

func TestAuth_Passenger_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lim := &fakeLimiter{allowOK: true}
	s, store, _ := newAuth(t, lim)

	f := &model.Flight{ID: uuid.Must(uuid.NewV4()), AirlineCode: "AA", FlightNumber: "1234", Terminal: "T1", Gate: "A1"}
	require.NoError(t, store.Flights.Create(ctx, f))
	pa := &model.Passenger{ID: uuid.Must(uuid.NewV4()), FirstName: "Jane", LastName: "Doe",
		Identification: "123456", TicketNumber: "1234567890", FlightID: f.ID, Status: model.PassengerNotCheckedIn}
	require.NoError(t, store.Passengers.Create(ctx, pa))

	_, _, err := s.Login(ctx, model.RolePassenger, Credentials{Identification: "654321", TicketNumber: "1234567890"}, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, _, err = s.Login(ctx, model.RolePassenger, Credentials{Identification: "123456", TicketNumber: "0000000000"}, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, _, err = s.Login(ctx, model.RolePassenger, Credentials{Identification: "x", TicketNumber: "y"}, "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	tok, p, err := s.Login(ctx, model.RolePassenger, Credentials{Identification: "123456", TicketNumber: "1234567890"}, "")
	require.NoError(t, err)
	require.Equal(t, "passenger:123456", lim.lastKey)
	require.Equal(t, pa.ID, p.PrincipalID())

	got, err := s.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, model.PassengerPrincipal(*pa), got)
}
