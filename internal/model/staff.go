package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/errs"
)

// StaffType is the role a staff account logs in as.
type StaffType string

const (
	StaffAirline StaffType = "airline_staff"
	StaffGate    StaffType = "gate_staff"
	StaffGround  StaffType = "ground_staff"
)

// Valid reports whether t is a known staff type.
func (t StaffType) Valid() bool {
	return t == StaffAirline || t == StaffGate || t == StaffGround
}

// Role maps the staff type to the login role.
func (t StaffType) Role() Role { return Role(t) }

// NeedsAirline reports whether accounts of this type are scoped to an airline.
func (t StaffType) NeedsAirline() bool { return t == StaffAirline || t == StaffGate }

// Staff is a staff account. Passwords are never stored in plaintext.
type Staff struct {
	ID                     uuid.UUID `json:"id"`
	Username               string    `json:"username"` // unique, 2 letters + 2 digits
	PwdHash                []byte    `json:"pwdHash"`  // Argon2id(password, Salt)
	Salt                   []byte    `json:"salt"`
	FirstName              string    `json:"firstName"`
	LastName               string    `json:"lastName"`
	Email                  string    `json:"email"`
	Phone                  string    `json:"phone"`
	StaffType              StaffType `json:"staffType"`
	AirlineCode            string    `json:"airlineCode,omitempty"`
	RequiresPasswordChange bool      `json:"requiresPasswordChange"`
	CreatedAt              time.Time `json:"createdAt"`
}

// FullName returns "First Last".
func (s Staff) FullName() string { return s.FirstName + " " + s.LastName }

// Administrator is the singleton admin account.
type Administrator struct {
	ID                     uuid.UUID `json:"id"`
	Username               string    `json:"username"`
	PwdHash                []byte    `json:"pwdHash"`
	Salt                   []byte    `json:"salt"`
	FirstName              string    `json:"firstName"`
	LastName               string    `json:"lastName"`
	RequiresPasswordChange bool      `json:"requiresPasswordChange"`
	CreatedAt              time.Time `json:"createdAt"`
}

// NewStaff is the admin input for creating a staff account.
type NewStaff struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	StaffType   StaffType
	AirlineCode string
}

// StaffCredentials is returned once on creation for out-of-band delivery.
type StaffCredentials struct {
	Staff    Staff
	Username string
	Password string // plaintext, never persisted
}

// Normalize trims fields and upper-cases the airline code.
func (n NewStaff) Normalize() NewStaff {
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.LastName = strings.TrimSpace(n.LastName)
	n.Email = strings.TrimSpace(n.Email)
	n.Phone = strings.TrimSpace(n.Phone)
	n.AirlineCode = strings.ToUpper(strings.TrimSpace(n.AirlineCode))
	return n
}

// Validate checks a normalized NewStaff. Airline and gate staff need an
// airline code; ground staff must not have one.
func (n NewStaff) Validate() error {
	if err := ValidateName("first name", n.FirstName); err != nil {
		return err
	}
	if err := ValidateName("last name", n.LastName); err != nil {
		return err
	}
	if err := ValidateEmail(n.Email); err != nil {
		return err
	}
	if err := ValidatePhone(n.Phone); err != nil {
		return err
	}
	if !n.StaffType.Valid() {
		return fmt.Errorf("staff type %q: %w", n.StaffType, errs.ErrValidation)
	}
	if n.StaffType.NeedsAirline() {
		return ValidateAirlineCode(n.AirlineCode)
	}
	if n.AirlineCode != "" {
		return fmt.Errorf("ground staff cannot have an airline code: %w", errs.ErrValidation)
	}
	return nil
}
