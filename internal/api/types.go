package api

import "time"

// Empty is used by methods without a request or response body.
type Empty struct{}

// IDRequest addresses an entity by UUID.
type IDRequest struct {
	ID string `json:"id"`
}

// Auth.

type LoginRequest struct {
	Role           string `json:"role"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	Identification string `json:"identification,omitempty"`
	TicketNumber   string `json:"ticketNumber,omitempty"`
}

type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        User      `json:"user"`
}

// User describes the authenticated principal.
type User struct {
	ID                     string `json:"id"`
	Role                   string `json:"role"`
	Name                   string `json:"name"`
	Username               string `json:"username,omitempty"`
	AirlineCode            string `json:"airlineCode,omitempty"`
	RequiresPasswordChange bool   `json:"requiresPasswordChange"`
}

type ChangePasswordRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

type NewStaffRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	StaffType   string `json:"staffType"`
	AirlineCode string `json:"airlineCode,omitempty"`
}

type Staff struct {
	ID                     string    `json:"id"`
	Username               string    `json:"username"`
	FirstName              string    `json:"firstName"`
	LastName               string    `json:"lastName"`
	Email                  string    `json:"email"`
	Phone                  string    `json:"phone"`
	StaffType              string    `json:"staffType"`
	AirlineCode            string    `json:"airlineCode,omitempty"`
	RequiresPasswordChange bool      `json:"requiresPasswordChange"`
	CreatedAt              time.Time `json:"createdAt"`
}

// StaffCredentials carries the one-time password of a new account.
type StaffCredentials struct {
	Staff    Staff  `json:"staff"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ListStaffRequest struct {
	StaffType string `json:"staffType,omitempty"`
}

type StaffList struct {
	Staff []Staff `json:"staff"`
}

// Flights.

type NewFlightRequest struct {
	AirlineCode  string `json:"airlineCode"`
	FlightNumber string `json:"flightNumber"`
	AirlineName  string `json:"airlineName,omitempty"`
	Destination  string `json:"destination,omitempty"`
	Terminal     string `json:"terminal"`
	Gate         string `json:"gate"`
}

type Flight struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	AirlineCode  string    `json:"airlineCode"`
	FlightNumber string    `json:"flightNumber"`
	AirlineName  string    `json:"airlineName,omitempty"`
	Destination  string    `json:"destination,omitempty"`
	Terminal     string    `json:"terminal"`
	Gate         string    `json:"gate"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ListFlightsRequest struct {
	AirlineCode string `json:"airlineCode,omitempty"`
}

type FlightList struct {
	Flights []Flight `json:"flights"`
}

type ReassignGateRequest struct {
	FlightID string `json:"flightId"`
	Terminal string `json:"terminal"`
	Gate     string `json:"gate"`
}

type Readiness struct {
	FlightID        string `json:"flightId"`
	TotalPassengers int    `json:"totalPassengers"`
	Boarded         int    `json:"boarded"`
	TotalBags       int    `json:"totalBags"`
	LoadedBags      int    `json:"loadedBags"`
	AllBoarded      bool   `json:"allBoarded"`
	AllLoaded       bool   `json:"allLoaded"`
	Ready           bool   `json:"ready"`
	Status          string `json:"status"`
}

// Passengers.

type NewPassengerRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Identification string `json:"identification"`
	TicketNumber   string `json:"ticketNumber"`
	FlightID       string `json:"flightId"`
}

type Passenger struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Identification string    `json:"identification"`
	TicketNumber   string    `json:"ticketNumber"`
	FlightID       string    `json:"flightId"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// GetPassengerRequest looks a passenger up by ID or, if ID is empty, by ticket.
type GetPassengerRequest struct {
	ID           string `json:"id,omitempty"`
	TicketNumber string `json:"ticketNumber,omitempty"`
}

type ListPassengersRequest struct {
	FlightID string `json:"flightId"`
}

type PassengerList struct {
	Passengers []Passenger `json:"passengers"`
}

// CheckInRequest declares one bag per counter number.
type CheckInRequest struct {
	TicketNumber string   `json:"ticketNumber"`
	Counters     []string `json:"counters"`
}

type CheckInResponse struct {
	Passenger Passenger `json:"passenger"`
	Bags      []Bag     `json:"bags"`
}

type BoardRequest struct {
	TicketNumber string `json:"ticketNumber"`
	Gate         string `json:"gate,omitempty"`
}

type ReportIssueRequest struct {
	TicketNumber string `json:"ticketNumber"`
	Type         string `json:"type"`
	Description  string `json:"description"`
}

type Issue struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	PassengerID string    `json:"passengerId,omitempty"`
	BagID       string    `json:"bagId,omitempty"`
	ReportedBy  string    `json:"reportedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type IssueList struct {
	Issues []Issue `json:"issues"`
}

type Dashboard struct {
	Passenger Passenger `json:"passenger"`
	Flight    Flight    `json:"flight"`
	Bags      []Bag     `json:"bags"`
}

// Bags.

type LocationEntry struct {
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

type Bag struct {
	ID              string          `json:"id"`
	BagID           string          `json:"bagId"`
	PassengerID     string          `json:"passengerId"`
	FlightID        string          `json:"flightId"`
	Location        string          `json:"location"`
	Terminal        string          `json:"terminal"`
	CounterNumber   string          `json:"counterNumber,omitempty"`
	GateNumber      string          `json:"gateNumber,omitempty"`
	LocationHistory []LocationEntry `json:"locationHistory"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// BagRequest addresses a bag by display code or UUID.
type BagRequest struct {
	Ref         string `json:"ref"`
	Description string `json:"description,omitempty"`
}

type ListBagsRequest struct {
	Location    string `json:"location,omitempty"`
	FlightID    string `json:"flightId,omitempty"`
	PassengerID string `json:"passengerId,omitempty"`
}

type BagList struct {
	Bags []Bag `json:"bags"`
}

// Boards.

type Message struct {
	ID          string     `json:"id"`
	BoardType   string     `json:"boardType"`
	SenderID    string     `json:"senderId"`
	SenderName  string     `json:"senderName"`
	SenderRole  string     `json:"senderRole"`
	AirlineCode string     `json:"airlineCode,omitempty"`
	MessageType string     `json:"messageType,omitempty"`
	FlightID    string     `json:"flightId,omitempty"`
	PassengerID string     `json:"passengerId,omitempty"`
	BagID       string     `json:"bagId,omitempty"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy  string     `json:"resolvedBy,omitempty"`
}

type PostMessageRequest struct {
	Board   string `json:"board"`
	Content string `json:"content"`
}

type ListBoardRequest struct {
	Board string `json:"board"`
}

type BoardEntry struct {
	Message Message `json:"message"`
	Action  string  `json:"action,omitempty"`
}

type BoardFeed struct {
	Entries []BoardEntry `json:"entries"`
}

type DirectiveRequest struct {
	MessageID string `json:"messageId"`
}

// DirectiveResult reports whether the action did anything; false means the
// directive was already handled.
type DirectiveResult struct {
	Handled bool `json:"handled"`
}

type NotifyDepartureRequest struct {
	FlightID string `json:"flightId"`
}
