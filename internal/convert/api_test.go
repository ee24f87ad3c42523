package convert

import (
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/api"
	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/model"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.FromString(s)
	if err != nil {
		t.Fatalf("bad uuid %q: %v", s, err)
	}
	return id
}

func TestParseID(t *testing.T) {
	t.Parallel()

	want := "6f1cbe8e-b2e7-4a3b-9f6e-2a2c0f2f9c11"
	got, err := ParseID("id", " "+want+" ")
	if err != nil || got.String() != want {
		t.Fatalf("ParseID=%v, %v", got, err)
	}
	for _, bad := range []string{"", "nope", uuid.Nil.String()} {
		if _, err := ParseID("id", bad); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("ParseID(%q) err=%v, want ErrValidation", bad, err)
		}
	}
}

func TestToUser_StaffAndPassenger(t *testing.T) {
	t.Parallel()

	id := mustUUID(t, "6f1cbe8e-b2e7-4a3b-9f6e-2a2c0f2f9c11")
	gate := ToUser(model.GateStaffUser{ID: id, Username: "AB12", FirstName: "Ann", LastName: "Lee", AirlineCode: "AA", RequiresPasswordChange: true})
	if gate.Role != string(model.RoleGateStaff) || gate.Username != "AB12" || gate.AirlineCode != "AA" || !gate.RequiresPasswordChange {
		t.Fatalf("gate user: %+v", gate)
	}
	if gate.Name != "Ann Lee" || gate.ID != id.String() {
		t.Fatalf("gate user: %+v", gate)
	}

	pax := ToUser(model.PassengerUser{ID: id, FirstName: "Jo", LastName: "Doe", TicketNumber: "1234567890"})
	if pax.Role != string(model.RolePassenger) || pax.Username != "" || pax.AirlineCode != "" {
		t.Fatalf("passenger user: %+v", pax)
	}
}

func TestToStaff_DropsSecrets(t *testing.T) {
	t.Parallel()

	s := model.Staff{ID: uuid.Must(uuid.NewV4()), Username: "AB12", PwdHash: []byte{1}, Salt: []byte{2}, StaffType: model.StaffGround}
	c := ToStaffCredentials(model.StaffCredentials{Staff: s, Username: "AB12", Password: "Xy12345!"})
	if c.Password != "Xy12345!" || c.Staff.StaffType != "ground_staff" || c.Staff.Username != "AB12" {
		t.Fatalf("credentials: %+v", c)
	}
}

func TestToBag_KeepsHistoryOrder(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	f := model.Flight{ID: uuid.Must(uuid.NewV4()), Terminal: "T1", Gate: "A1"}
	p := model.Passenger{ID: uuid.Must(uuid.NewV4()), FlightID: f.ID}
	b := model.NewCheckedBag(uuid.Must(uuid.NewV4()), "123456", p, f, "C1", "Ann Lee", t0)
	_ = b.MoveTo(model.BagSecurity, "Rob Fox", t0.Add(time.Minute))

	got := ToBag(b)
	if got.BagID != "123456" || got.Location != "security" || got.FlightID != f.ID.String() {
		t.Fatalf("bag: %+v", got)
	}
	if len(got.LocationHistory) != 2 || got.LocationHistory[0].Location != "check_in" || got.LocationHistory[1].UpdatedBy != "Rob Fox" {
		t.Fatalf("history: %+v", got.LocationHistory)
	}
}

func TestFromListBags(t *testing.T) {
	t.Parallel()

	fid := uuid.Must(uuid.NewV4())
	f, err := FromListBags(&api.ListBagsRequest{Location: "gate", FlightID: fid.String()})
	if err != nil {
		t.Fatalf("FromListBags: %v", err)
	}
	if f.Location != model.BagGate || f.FlightID != fid || f.PassengerID != uuid.Nil {
		t.Fatalf("filter: %+v", f)
	}
	if _, err := FromListBags(&api.ListBagsRequest{PassengerID: "x"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad passenger id err=%v", err)
	}
}

func TestFromNewPassenger_BadFlight(t *testing.T) {
	t.Parallel()

	if _, err := FromNewPassenger(&api.NewPassengerRequest{FlightID: "bad"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v", err)
	}
}

func TestToMessage_OptionalRefs(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m := model.Message{
		ID:          uuid.Must(uuid.NewV4()),
		BoardType:   model.BoardAirline,
		MessageType: model.MsgSecurityViolation,
		BagID:       uuid.Must(uuid.NewV4()),
		Content:     "bag flagged",
		ResolvedAt:  &at,
		ResolvedBy:  "Ann Lee",
	}
	got := ToMessage(m)
	if got.FlightID != "" || got.PassengerID != "" || got.SenderID != "" {
		t.Fatalf("nil refs must be empty: %+v", got)
	}
	if got.BagID != m.BagID.String() || got.ResolvedAt == nil || !got.ResolvedAt.Equal(at) {
		t.Fatalf("message: %+v", got)
	}
	at = at.Add(time.Hour)
	if got.ResolvedAt.Equal(at) {
		t.Fatalf("ResolvedAt aliases the domain value")
	}

	feed := ToBoardFeed([]model.BoardEntry{{Message: m, Action: model.ActionHandleViolation}})
	if len(feed.Entries) != 1 || feed.Entries[0].Action != "handle_violation" {
		t.Fatalf("feed: %+v", feed)
	}
}
