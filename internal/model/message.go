package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// MaxMessageLen bounds message content.
const MaxMessageLen = 500

// BoardType names a role's message board.
type BoardType string

const (
	BoardAirline BoardType = "airline"
	BoardGate    BoardType = "gate"
	BoardGround  BoardType = "ground"
	BoardAdmin   BoardType = "admin"
)

// Valid reports whether b is a known board.
func (b BoardType) Valid() bool {
	switch b {
	case BoardAirline, BoardGate, BoardGround, BoardAdmin:
		return true
	}
	return false
}

// MessageType tags a directive. Empty means free text.
type MessageType string

const (
	MsgDepartureReady    MessageType = "departure_ready"
	MsgRemovePassenger   MessageType = "remove_passenger"
	MsgSecurityViolation MessageType = "security_violation"
	MsgGateChange        MessageType = "gate_change"
)

// Message is posted to a board. Content and references never change;
// only the resolution marker is set once a directive is handled.
type Message struct {
	ID          uuid.UUID   `json:"id"`
	BoardType   BoardType   `json:"boardType"`
	SenderID    uuid.UUID   `json:"senderId"`
	SenderName  string      `json:"senderName"`
	SenderRole  Role        `json:"senderRole"`
	AirlineCode string      `json:"airlineCode,omitempty"`
	MessageType MessageType `json:"messageType,omitempty"`
	FlightID    uuid.UUID   `json:"flightId"`
	PassengerID uuid.UUID   `json:"passengerId"`
	BagID       uuid.UUID   `json:"bagId"`
	Content     string      `json:"content"`
	CreatedAt   time.Time   `json:"createdAt"`
	ResolvedAt  *time.Time  `json:"resolvedAt,omitempty"`
	ResolvedBy  string      `json:"resolvedBy,omitempty"`
}

// IsDirective reports whether the message expects a remediation action.
// Gate change notices are informational.
func (m Message) IsDirective() bool {
	switch m.MessageType {
	case MsgDepartureReady, MsgRemovePassenger, MsgSecurityViolation:
		return true
	}
	return false
}

// Resolved reports whether a directive has been handled.
func (m Message) Resolved() bool { return m.ResolvedAt != nil }

// Action is a remediation a board reader may take on a directive.
type Action string

const (
	ActionNone            Action = ""
	ActionHandleViolation Action = "handle_violation"
	ActionRemovePassenger Action = "remove_passenger"
	ActionDepartFlight    Action = "depart_flight"
)

// BoardEntry is a message together with the action offered to the reader.
type BoardEntry struct {
	Message Message
	Action  Action
}
