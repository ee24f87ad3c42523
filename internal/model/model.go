// Package model defines domain entities, their transition tables and validation rules
// used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role identifies which actor performs an operation.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleAirlineStaff  Role = "airline_staff"
	RoleGateStaff     Role = "gate_staff"
	RoleGroundStaff   Role = "ground_staff"
	RolePassenger     Role = "passenger"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleAirlineStaff, RoleGateStaff, RoleGroundStaff, RolePassenger:
		return true
	}
	return false
}

// Tokens carries an issued session token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Session binds a bearer token to a user and role until ExpiresAt.
type Session struct {
	ID        uuid.UUID `json:"id"` // JWT "jti"
	UserID    uuid.UUID `json:"userId"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IssueType classifies an audit Issue.
type IssueType string

const (
	IssueSecurityViolation IssueType = "security_violation"
	IssuePassengerRemoval  IssueType = "passenger_removal"
)

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	return t == IssueSecurityViolation || t == IssuePassengerRemoval
}

// Issue is an append-only audit record.
type Issue struct {
	ID          uuid.UUID `json:"id"`
	Type        IssueType `json:"type"`
	Description string    `json:"description"`
	PassengerID uuid.UUID `json:"passengerId"` // uuid.Nil when absent
	BagID       uuid.UUID `json:"bagId"`       // uuid.Nil when absent
	ReportedBy  string    `json:"reportedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}
