package model

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Flight occupies a single (terminal, gate) pair until it departs.
type Flight struct {
	ID           uuid.UUID `json:"id"`
	AirlineCode  string    `json:"airlineCode"`
	FlightNumber string    `json:"flightNumber"`
	AirlineName  string    `json:"airlineName,omitempty"`
	Destination  string    `json:"destination,omitempty"`
	Terminal     string    `json:"terminal"`
	Gate         string    `json:"gate"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Code returns the display code, e.g. "AA1234".
func (f Flight) Code() string { return f.AirlineCode + f.FlightNumber }

// FlightStatus is the gate-side summary derived from Readiness.
type FlightStatus string

const (
	FlightNotReady FlightStatus = "not_ready"
	FlightBoarding FlightStatus = "boarding"
	FlightReady    FlightStatus = "ready"
)

// Readiness is the on-demand departure readiness of a flight.
type Readiness struct {
	FlightID        uuid.UUID
	TotalPassengers int
	Boarded         int
	TotalBags       int
	LoadedBags      int
	AllBoarded      bool
	AllLoaded       bool
	Ready           bool
	Status          FlightStatus
}

// ComputeReadiness derives readiness from the flight's passengers and bags.
// A flight without passengers is never ready.
func ComputeReadiness(flightID uuid.UUID, passengers []Passenger, bags []Bag) Readiness {
	r := Readiness{FlightID: flightID, TotalPassengers: len(passengers), TotalBags: len(bags)}
	for _, p := range passengers {
		if p.Status == PassengerBoarded {
			r.Boarded++
		}
	}
	for _, b := range bags {
		if b.Location == BagLoaded {
			r.LoadedBags++
		}
	}
	r.AllBoarded = r.Boarded == r.TotalPassengers && r.TotalPassengers > 0
	r.AllLoaded = r.LoadedBags == r.TotalBags
	r.Ready = r.AllBoarded && r.AllLoaded
	switch {
	case r.Ready:
		r.Status = FlightReady
	case r.Boarded > 0:
		r.Status = FlightBoarding
	default:
		r.Status = FlightNotReady
	}
	return r
}

// NewFlight is the admin input for creating a flight.
type NewFlight struct {
	AirlineCode  string
	FlightNumber string
	AirlineName  string
	Destination  string
	Terminal     string
	Gate         string
}

// Normalize trims input and upper-cases codes and gate identifiers.
func (n NewFlight) Normalize() NewFlight {
	n.AirlineCode = strings.ToUpper(strings.TrimSpace(n.AirlineCode))
	n.FlightNumber = strings.TrimSpace(n.FlightNumber)
	n.AirlineName = strings.TrimSpace(n.AirlineName)
	n.Destination = strings.TrimSpace(n.Destination)
	n.Terminal = strings.ToUpper(strings.TrimSpace(n.Terminal))
	n.Gate = strings.ToUpper(strings.TrimSpace(n.Gate))
	return n
}

// Validate checks a normalized NewFlight.
func (n NewFlight) Validate() error {
	if err := ValidateAirlineCode(n.AirlineCode); err != nil {
		return err
	}
	if err := ValidateFlightNumber(n.FlightNumber); err != nil {
		return err
	}
	if err := Required("terminal", n.Terminal); err != nil {
		return err
	}
	return Required("gate", n.Gate)
}
