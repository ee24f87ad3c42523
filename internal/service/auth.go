package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/bagtrack/internal/crypto"
	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/limiter"
	"github.com/and161185/bagtrack/internal/metrics"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

const (
	// AdminUsername is the login of the seeded administrator.
	AdminUsername = "admin"

	usernameAttempts = 20
)

// Credentials holds the login fields; which ones are used depends on the role.
type Credentials struct {
	Username       string
	Password       string
	Identification string
	TicketNumber   string
}

// AuthService defines authentication, session and account operations.
type AuthService interface {
	// Login applies rate limiting and authenticates the caller for role.
	Login(ctx context.Context, role model.Role, c Credentials, ip string) (model.Tokens, model.Principal, error)
	// Authenticate resolves a bearer token to the current principal.
	Authenticate(ctx context.Context, token string) (model.Principal, error)
	// Logout ends the session behind token.
	Logout(ctx context.Context, token string) error
	// ChangePassword rotates the caller's password and clears the rotation flag.
	ChangePassword(ctx context.Context, p model.Principal, current, next string) error
	// CreateStaff creates an account and returns its one-time password.
	CreateStaff(ctx context.Context, p model.Principal, in model.NewStaff) (*model.StaffCredentials, error)
	RemoveStaff(ctx context.Context, p model.Principal, id uuid.UUID) error
	ListStaff(ctx context.Context, p model.Principal, staffType model.StaffType) ([]model.Staff, error)
	// EnsureAdmin seeds the administrator if missing and reports whether it did.
	EnsureAdmin(ctx context.Context, password string) (bool, error)
}

type AuthServiceImpl struct {
	base
	signKey []byte
	ttl     time.Duration
	lim     limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(store repository.Store, signKey []byte, ttl time.Duration, lim limiter.Limiter, log *zap.Logger, m *metrics.Metrics) *AuthServiceImpl {
	return &AuthServiceImpl{base: newBase(store, log, m), signKey: signKey, ttl: ttl, lim: lim}
}

func loginKey(role model.Role, c Credentials) string {
	if role == model.RolePassenger {
		return string(role) + ":" + strings.TrimSpace(c.Identification)
	}
	return string(role) + ":" + strings.TrimSpace(c.Username)
}

// Login reports ErrUnauthorized for every credential mismatch so callers
// cannot tell which field was wrong.
func (s *AuthServiceImpl) Login(ctx context.Context, role model.Role, c Credentials, ip string) (model.Tokens, model.Principal, error) {
	if !role.Valid() {
		return model.Tokens{}, nil, fmt.Errorf("role %q: %w", role, errs.ErrValidation)
	}
	key, ipHash := loginKey(role, c), limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, key, ipHash)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if !allowed {
		s.m.LoginFailures.WithLabelValues(string(role), "blocked").Inc()
		return model.Tokens{}, nil, errs.ErrRateLimited
	}

	p, err := s.verify(ctx, role, c)
	if errors.Is(err, errs.ErrUnauthorized) {
		s.m.LoginFailures.WithLabelValues(string(role), "credentials").Inc()
		if blocked, _, ferr := s.lim.Failure(ctx, key, ipHash); ferr == nil && blocked {
			return model.Tokens{}, nil, errs.ErrRateLimited
		}
		return model.Tokens{}, nil, errs.ErrUnauthorized
	}
	if err != nil {
		return model.Tokens{}, nil, err
	}

	_ = s.lim.Success(ctx, key, ipHash)

	tokens, err := s.issueSession(ctx, p)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	s.log.Info("login", zap.String("role", string(role)), zap.String("user", p.PrincipalID().String()))
	return tokens, p, nil
}

// verify checks credentials and builds the principal.
func (s *AuthServiceImpl) verify(ctx context.Context, role model.Role, c Credentials) (model.Principal, error) {
	switch role {
	case model.RolePassenger:
		ticket, ident := strings.TrimSpace(c.TicketNumber), strings.TrimSpace(c.Identification)
		if model.ValidateTicketNumber(ticket) != nil || model.ValidateIdentification(ident) != nil {
			return nil, errs.ErrUnauthorized
		}
		pa, err := s.store.Passengers.GetByTicket(ctx, ticket)
		if err != nil {
			return nil, unauthorizedIfMissing(err)
		}
		if subtle.ConstantTimeCompare([]byte(pa.Identification), []byte(ident)) != 1 {
			return nil, errs.ErrUnauthorized
		}
		return model.PassengerPrincipal(*pa), nil

	case model.RoleAdministrator:
		a, err := s.store.Admin.Get(ctx)
		if err != nil {
			return nil, unauthorizedIfMissing(err)
		}
		if a.Username != strings.TrimSpace(c.Username) || !pkgcrypto.VerifyPassword(c.Password, a.Salt, a.PwdHash) {
			return nil, errs.ErrUnauthorized
		}
		return model.AdminPrincipal(*a), nil
	}

	st, err := s.store.Staff.GetByUsername(ctx, strings.TrimSpace(c.Username))
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	if st.StaffType.Role() != role || !pkgcrypto.VerifyPassword(c.Password, st.Salt, st.PwdHash) {
		return nil, errs.ErrUnauthorized
	}
	return model.StaffPrincipal(*st)
}

func unauthorizedIfMissing(err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrUnauthorized
	}
	return err
}

// issueSession stores a session and signs an HS256 JWT naming it.
func (s *AuthServiceImpl) issueSession(ctx context.Context, p model.Principal) (model.Tokens, error) {
	now := s.now()
	sess := &model.Session{
		ID:        newID(),
		UserID:    p.PrincipalID(),
		Role:      p.Role(),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Sessions.Create(ctx, sess); err != nil {
		return model.Tokens{}, err
	}
	claims := jwt.RegisteredClaims{
		ID:        sess.ID.String(),
		Subject:   sess.UserID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: sess.ExpiresAt}, nil
}

// parse verifies the signature only; expiry is decided by the stored session.
func (s *AuthServiceImpl) parse(token string) (*jwt.RegisteredClaims, uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("token: %v: %w", err, errs.ErrUnauthorized)
	}
	sid, err := uuid.FromString(claims.ID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("token without session: %w", errs.ErrUnauthorized)
	}
	return claims, sid, nil
}

// Authenticate deletes an expired session on first use after expiry.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	claims, sid, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.Sessions.Get(ctx, sid)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	if sess.Expired(s.now()) {
		if err := s.store.Sessions.Delete(ctx, sid); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("session expired: %w", errs.ErrUnauthorized)
	}
	if claims.Subject != sess.UserID.String() {
		return nil, errs.ErrUnauthorized
	}
	p, err := s.principal(ctx, sess)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}
	return p, nil
}

// principal rebuilds the caller from the current record, so removed
// accounts lose access immediately.
func (s *AuthServiceImpl) principal(ctx context.Context, sess *model.Session) (model.Principal, error) {
	switch sess.Role {
	case model.RoleAdministrator:
		a, err := s.store.Admin.Get(ctx)
		if err != nil {
			return nil, err
		}
		if a.ID != sess.UserID {
			return nil, errs.ErrUnauthorized
		}
		return model.AdminPrincipal(*a), nil
	case model.RolePassenger:
		pa, err := s.store.Passengers.GetByID(ctx, sess.UserID)
		if err != nil {
			return nil, err
		}
		return model.PassengerPrincipal(*pa), nil
	case model.RoleAirlineStaff, model.RoleGateStaff, model.RoleGroundStaff:
		st, err := s.store.Staff.GetByID(ctx, sess.UserID)
		if err != nil {
			return nil, err
		}
		if st.StaffType.Role() != sess.Role {
			return nil, errs.ErrUnauthorized
		}
		return model.StaffPrincipal(*st)
	}
	return nil, errs.ErrUnauthorized
}

func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	_, sid, err := s.parse(token)
	if err != nil {
		return err
	}
	return s.store.Sessions.Delete(ctx, sid)
}

// ChangePassword requires a new password different from the current one.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, p model.Principal, current, next string) error {
	switch p.(type) {
	case nil:
		return errs.ErrUnauthorized
	case model.PassengerUser:
		return fmt.Errorf("passengers have no password: %w", errs.ErrForbidden)
	}
	err := s.tx(ctx, func(ctx context.Context) error {
		var (
			storedSalt, storedHash []byte
			set                    func(hash, salt []byte) error
		)
		if _, ok := p.(model.AdminUser); ok {
			a, err := s.store.Admin.Get(ctx)
			if err != nil {
				return err
			}
			storedSalt, storedHash = a.Salt, a.PwdHash
			set = func(hash, salt []byte) error { return s.store.Admin.SetPassword(ctx, hash, salt) }
		} else {
			st, err := s.store.Staff.GetByID(ctx, p.PrincipalID())
			if err != nil {
				return err
			}
			storedSalt, storedHash = st.Salt, st.PwdHash
			set = func(hash, salt []byte) error { return s.store.Staff.SetPassword(ctx, st.ID, hash, salt) }
		}

		// current password first, then the policy
		if !pkgcrypto.VerifyPassword(current, storedSalt, storedHash) {
			return fmt.Errorf("current password: %w", errs.ErrUnauthorized)
		}
		if err := model.ValidatePassword(next); err != nil {
			return err
		}
		if next == current {
			return fmt.Errorf("new password must differ from the current one: %w", errs.ErrValidation)
		}
		hash, salt, err := pkgcrypto.NewPasswordHash(next)
		if err != nil {
			return err
		}
		return set(hash, salt)
	})
	if err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("role", string(p.Role())), zap.String("user", p.PrincipalID().String()))
	return nil
}

// CreateStaff returns the plaintext password once; only its hash is stored.
func (s *AuthServiceImpl) CreateStaff(ctx context.Context, p model.Principal, in model.NewStaff) (*model.StaffCredentials, error) {
	if _, err := requireAdmin(p); err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	password, err := pkgcrypto.GeneratePassword()
	if err != nil {
		return nil, err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(password)
	if err != nil {
		return nil, err
	}
	st := &model.Staff{
		ID:                     newID(),
		PwdHash:                hash,
		Salt:                   salt,
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		Email:                  in.Email,
		Phone:                  in.Phone,
		StaffType:              in.StaffType,
		AirlineCode:            in.AirlineCode,
		RequiresPasswordChange: true,
		CreatedAt:              s.now(),
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		for range usernameAttempts {
			name, err := pkgcrypto.GenerateUsername()
			if err != nil {
				return err
			}
			_, err = s.store.Staff.GetByUsername(ctx, name)
			if errors.Is(err, errs.ErrNotFound) {
				st.Username = name
				return s.store.Staff.Create(ctx, st)
			}
			if err != nil {
				return err
			}
		}
		return fmt.Errorf("no free username after %d attempts: %w", usernameAttempts, errs.ErrConflict)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("staff created", zap.String("username", st.Username), zap.String("type", string(st.StaffType)),
		zap.String("airline", st.AirlineCode))
	return &model.StaffCredentials{Staff: *st, Username: st.Username, Password: password}, nil
}

func (s *AuthServiceImpl) RemoveStaff(ctx context.Context, p model.Principal, id uuid.UUID) error {
	if _, err := requireAdmin(p); err != nil {
		return err
	}
	if err := s.store.Staff.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("staff removed", zap.String("staff", id.String()))
	return nil
}

func (s *AuthServiceImpl) ListStaff(ctx context.Context, p model.Principal, staffType model.StaffType) ([]model.Staff, error) {
	if _, err := requireAdmin(p); err != nil {
		return nil, err
	}
	if staffType != "" && !staffType.Valid() {
		return nil, fmt.Errorf("staff type %q: %w", staffType, errs.ErrValidation)
	}
	return s.store.Staff.List(ctx, staffType)
}

// EnsureAdmin seeds the administrator with password; the account must
// rotate it before the flag clears.
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, fmt.Errorf("admin password: %w", errs.ErrValidation)
	}
	created := false
	err := s.tx(ctx, func(ctx context.Context) error {
		_, err := s.store.Admin.Get(ctx)
		if err == nil || !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		hash, salt, err := pkgcrypto.NewPasswordHash(password)
		if err != nil {
			return err
		}
		created = true
		return s.store.Admin.Create(ctx, &model.Administrator{
			ID:                     newID(),
			Username:               AdminUsername,
			PwdHash:                hash,
			Salt:                   salt,
			FirstName:              "System",
			LastName:               "Administrator",
			RequiresPasswordChange: true,
			CreatedAt:              s.now(),
		})
	})
	if err != nil {
		return false, err
	}
	if created {
		s.log.Warn("administrator seeded with the configured default password; change it on first login")
	}
	return created, nil
}
