package model

import (
	"fmt"

	"github.com/gofrs/uuid/v5"
)

// Principal is the authenticated caller. Concrete variants carry only the
// fields their role needs; callers dispatch with a type switch.
type Principal interface {
	PrincipalID() uuid.UUID
	Role() Role
	DisplayName() string
	isPrincipal()
}

// AdminUser is the administrator principal.
type AdminUser struct {
	ID                     uuid.UUID
	Username               string
	FirstName              string
	LastName               string
	RequiresPasswordChange bool
}

// AirlineStaffUser checks passengers in for one airline.
type AirlineStaffUser struct {
	ID                     uuid.UUID
	Username               string
	FirstName              string
	LastName               string
	AirlineCode            string
	RequiresPasswordChange bool
}

// GateStaffUser boards passengers and manages gates for one airline.
type GateStaffUser struct {
	ID                     uuid.UUID
	Username               string
	FirstName              string
	LastName               string
	AirlineCode            string
	RequiresPasswordChange bool
}

// GroundStaffUser moves bags for every airline.
type GroundStaffUser struct {
	ID                     uuid.UUID
	Username               string
	FirstName              string
	LastName               string
	RequiresPasswordChange bool
}

// PassengerUser is a passenger logged in with identification and ticket.
type PassengerUser struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Identification string
	TicketNumber   string
}

func (u AdminUser) PrincipalID() uuid.UUID        { return u.ID }
func (u AirlineStaffUser) PrincipalID() uuid.UUID { return u.ID }
func (u GateStaffUser) PrincipalID() uuid.UUID    { return u.ID }
func (u GroundStaffUser) PrincipalID() uuid.UUID  { return u.ID }
func (u PassengerUser) PrincipalID() uuid.UUID    { return u.ID }

func (AdminUser) Role() Role        { return RoleAdministrator }
func (AirlineStaffUser) Role() Role { return RoleAirlineStaff }
func (GateStaffUser) Role() Role    { return RoleGateStaff }
func (GroundStaffUser) Role() Role  { return RoleGroundStaff }
func (PassengerUser) Role() Role    { return RolePassenger }

func (u AdminUser) DisplayName() string        { return u.FirstName + " " + u.LastName }
func (u AirlineStaffUser) DisplayName() string { return u.FirstName + " " + u.LastName }
func (u GateStaffUser) DisplayName() string    { return u.FirstName + " " + u.LastName }
func (u GroundStaffUser) DisplayName() string  { return u.FirstName + " " + u.LastName }
func (u PassengerUser) DisplayName() string    { return u.FirstName + " " + u.LastName }

func (AdminUser) isPrincipal()        {}
func (AirlineStaffUser) isPrincipal() {}
func (GateStaffUser) isPrincipal()    {}
func (GroundStaffUser) isPrincipal()  {}
func (PassengerUser) isPrincipal()    {}

// AirlineOf returns the airline scope of p, or "" for unscoped principals.
func AirlineOf(p Principal) string {
	switch u := p.(type) {
	case AirlineStaffUser:
		return u.AirlineCode
	case GateStaffUser:
		return u.AirlineCode
	}
	return ""
}

// RequiresPasswordChange reports the pending-rotation flag of p.
func RequiresPasswordChange(p Principal) bool {
	switch u := p.(type) {
	case AdminUser:
		return u.RequiresPasswordChange
	case AirlineStaffUser:
		return u.RequiresPasswordChange
	case GateStaffUser:
		return u.RequiresPasswordChange
	case GroundStaffUser:
		return u.RequiresPasswordChange
	}
	return false
}

// AdminPrincipal builds the principal for the administrator record.
func AdminPrincipal(a Administrator) AdminUser {
	return AdminUser{
		ID:                     a.ID,
		Username:               a.Username,
		FirstName:              a.FirstName,
		LastName:               a.LastName,
		RequiresPasswordChange: a.RequiresPasswordChange,
	}
}

// StaffPrincipal builds the principal variant matching the staff type.
func StaffPrincipal(s Staff) (Principal, error) {
	switch s.StaffType {
	case StaffAirline:
		return AirlineStaffUser{ID: s.ID, Username: s.Username, FirstName: s.FirstName, LastName: s.LastName,
			AirlineCode: s.AirlineCode, RequiresPasswordChange: s.RequiresPasswordChange}, nil
	case StaffGate:
		return GateStaffUser{ID: s.ID, Username: s.Username, FirstName: s.FirstName, LastName: s.LastName,
			AirlineCode: s.AirlineCode, RequiresPasswordChange: s.RequiresPasswordChange}, nil
	case StaffGround:
		return GroundStaffUser{ID: s.ID, Username: s.Username, FirstName: s.FirstName, LastName: s.LastName,
			RequiresPasswordChange: s.RequiresPasswordChange}, nil
	}
	return nil, fmt.Errorf("unknown staff type %q", s.StaffType)
}

// PassengerPrincipal builds the passenger principal.
func PassengerPrincipal(p Passenger) PassengerUser {
	return PassengerUser{
		ID:             p.ID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Identification: p.Identification,
		TicketNumber:   p.TicketNumber,
	}
}
