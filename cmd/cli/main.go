// Command bt is a CLI client for the bagtrack service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/and161185/bagtrack/internal/api"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
	Name        string    `json:"name"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "bagtrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bagtrack")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(resp *api.LoginResponse) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{
		AccessToken: resp.AccessToken,
		ExpiresAt:   resp.ExpiresAt,
		Role:        resp.User.Role,
		Name:        resp.User.Name,
	})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

func dropToken() error {
	if err := os.Remove(tokenPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

type dialOpts struct {
	addr       string
	caPath     string
	skipVerify bool
	plaintext  bool
}

func dial(o dialOpts, bearer string) (*grpc.ClientConn, *api.Client, error) {
	var creds credentials.TransportCredentials
	if o.plaintext {
		creds = insecure.NewCredentials()
	} else {
		var err error
		if creds, err = loadTLS(o.caPath, o.skipVerify); err != nil {
			return nil, nil, err
		}
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !o.plaintext}))
	}
	cc, err := grpc.NewClient(o.addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, api.NewClient(cc), nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// splitList splits a comma-separated flag; blanks are kept so the server can reject them.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func usage() {
	fmt.Fprintf(os.Stderr, `bt CLI
Usage:
  bt -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Session:
  version
  login      -role <role> -u <username> -p <password>   (saves token)
  login      -role passenger -id <identification> -ticket <ticket>
  logout
  me
  passwd     -old <password> -new <password>

Administration:
  staff-add  -first F -last L -email E -phone P -type <airline_staff|gate_staff|ground_staff> [-airline XX]
  staff-rm   -id <uuid>
  staff-ls   [-type T]
  flight-add -airline XX -number N -terminal T -gate G [-name N] [-dest D]
  flight-rm  -id <uuid>
  pax-add    -first F -last L -ident I -ticket T -flight <uuid>
  pax-rm     -id <uuid>
  issues

Flights and passengers:
  flights    [-airline XX]
  flight     -id <uuid>
  readiness  -id <uuid>
  gate       -flight <uuid> -terminal T -gate G
  pax        -id <uuid> | -ticket T
  pax-ls     -flight <uuid>
  checkin    -ticket T [-counters C1,C2]
  board      -ticket T [-gate G]
  report     -ticket T -type <security_violation|passenger_removal> -desc D
  dashboard

Bags (ref is the 6-digit code or the uuid):
  bag        -ref R
  bags       [-location L] [-flight <uuid>] [-passenger <uuid>]
  security   -ref R
  clear      -ref R
  flag       -ref R -desc D
  load       -ref R

Boards:
  post       -board <airline|gate|ground|admin> (-text T | -file F|-)
  feed       -board B
  handle     -msg <uuid>
  notify     -flight <uuid>
  remove     -msg <uuid>
  depart     -msg <uuid>
`)
	os.Exit(2)
}

// ---- requests ----

// errUsage reports a missing or malformed subcommand flag.
var errUsage = errors.New("bad arguments")

func need(ok bool, msg string) error {
	if !ok {
		return fmt.Errorf("%w: %s", errUsage, msg)
	}
	return nil
}

// request parses the flags of an authenticated subcommand into an RPC call.
func request(cmd string, args []string) (method string, in, out any, err error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var check func() error

	switch cmd {
	case "me":
		method, in, out = api.MethodMe, &api.Empty{}, &api.User{}
	case "passwd":
		old, next := fs.String("old", "", "current password"), fs.String("new", "", "new password")
		check = func() error { return need(*old != "" && *next != "", "need -old and -new") }
		method, out = api.MethodChangePassword, &api.Empty{}
		in = func() any { return &api.ChangePasswordRequest{Current: *old, New: *next} }

	case "staff-add":
		r := &api.NewStaffRequest{}
		fs.StringVar(&r.FirstName, "first", "", "first name")
		fs.StringVar(&r.LastName, "last", "", "last name")
		fs.StringVar(&r.Email, "email", "", "email")
		fs.StringVar(&r.Phone, "phone", "", "phone")
		fs.StringVar(&r.StaffType, "type", "", "staff type")
		fs.StringVar(&r.AirlineCode, "airline", "", "airline code")
		check = func() error { return need(r.StaffType != "", "need -type") }
		method, in, out = api.MethodCreateStaff, r, &api.StaffCredentials{}
	case "staff-rm":
		r := &api.IDRequest{}
		fs.StringVar(&r.ID, "id", "", "staff id")
		check = func() error { return need(r.ID != "", "need -id") }
		method, in, out = api.MethodRemoveStaff, r, &api.Empty{}
	case "staff-ls":
		r := &api.ListStaffRequest{}
		fs.StringVar(&r.StaffType, "type", "", "staff type filter")
		method, in, out = api.MethodListStaff, r, &api.StaffList{}

	case "flight-add":
		r := &api.NewFlightRequest{}
		fs.StringVar(&r.AirlineCode, "airline", "", "airline code")
		fs.StringVar(&r.FlightNumber, "number", "", "flight number")
		fs.StringVar(&r.AirlineName, "name", "", "airline name")
		fs.StringVar(&r.Destination, "dest", "", "destination")
		fs.StringVar(&r.Terminal, "terminal", "", "terminal")
		fs.StringVar(&r.Gate, "gate", "", "gate")
		check = func() error { return need(r.AirlineCode != "" && r.FlightNumber != "", "need -airline and -number") }
		method, in, out = api.MethodCreateFlight, r, &api.Flight{}
	case "flight", "readiness", "flight-rm", "pax-rm":
		r := &api.IDRequest{}
		fs.StringVar(&r.ID, "id", "", "id")
		check = func() error { return need(r.ID != "", "need -id") }
		in = r
		switch cmd {
		case "flight":
			method, out = api.MethodGetFlight, &api.Flight{}
		case "readiness":
			method, out = api.MethodFlightReadiness, &api.Readiness{}
		case "flight-rm":
			method, out = api.MethodRemoveFlight, &api.Empty{}
		default:
			method, out = api.MethodRemovePassenger, &api.Empty{}
		}
	case "flights":
		r := &api.ListFlightsRequest{}
		fs.StringVar(&r.AirlineCode, "airline", "", "airline filter")
		method, in, out = api.MethodListFlights, r, &api.FlightList{}
	case "gate":
		r := &api.ReassignGateRequest{}
		fs.StringVar(&r.FlightID, "flight", "", "flight id")
		fs.StringVar(&r.Terminal, "terminal", "", "terminal")
		fs.StringVar(&r.Gate, "gate", "", "gate")
		check = func() error { return need(r.FlightID != "" && r.Gate != "", "need -flight and -gate") }
		method, in, out = api.MethodReassignGate, r, &api.Flight{}

	case "pax-add":
		r := &api.NewPassengerRequest{}
		fs.StringVar(&r.FirstName, "first", "", "first name")
		fs.StringVar(&r.LastName, "last", "", "last name")
		fs.StringVar(&r.Identification, "ident", "", "identification")
		fs.StringVar(&r.TicketNumber, "ticket", "", "ticket number")
		fs.StringVar(&r.FlightID, "flight", "", "flight id")
		check = func() error { return need(r.TicketNumber != "" && r.FlightID != "", "need -ticket and -flight") }
		method, in, out = api.MethodCreatePassenger, r, &api.Passenger{}
	case "pax":
		r := &api.GetPassengerRequest{}
		fs.StringVar(&r.ID, "id", "", "passenger id")
		fs.StringVar(&r.TicketNumber, "ticket", "", "ticket number")
		check = func() error { return need(r.ID != "" || r.TicketNumber != "", "need -id or -ticket") }
		method, in, out = api.MethodGetPassenger, r, &api.Passenger{}
	case "pax-ls":
		r := &api.ListPassengersRequest{}
		fs.StringVar(&r.FlightID, "flight", "", "flight id")
		check = func() error { return need(r.FlightID != "", "need -flight") }
		method, in, out = api.MethodListPassengers, r, &api.PassengerList{}
	case "checkin":
		ticket, counters := fs.String("ticket", "", "ticket number"), fs.String("counters", "", "comma-separated counter per bag")
		check = func() error { return need(*ticket != "", "need -ticket") }
		method, out = api.MethodCheckIn, &api.CheckInResponse{}
		in = func() any { return &api.CheckInRequest{TicketNumber: *ticket, Counters: splitList(*counters)} }
	case "board":
		r := &api.BoardRequest{}
		fs.StringVar(&r.TicketNumber, "ticket", "", "ticket number")
		fs.StringVar(&r.Gate, "gate", "", "gate being worked")
		check = func() error { return need(r.TicketNumber != "", "need -ticket") }
		method, in, out = api.MethodBoard, r, &api.Passenger{}
	case "report":
		r := &api.ReportIssueRequest{}
		fs.StringVar(&r.TicketNumber, "ticket", "", "ticket number")
		fs.StringVar(&r.Type, "type", "", "issue type")
		fs.StringVar(&r.Description, "desc", "", "description")
		check = func() error { return need(r.TicketNumber != "" && r.Type != "", "need -ticket and -type") }
		method, in, out = api.MethodReportIssue, r, &api.Issue{}
	case "dashboard":
		method, in, out = api.MethodDashboard, &api.Empty{}, &api.Dashboard{}

	case "bag", "security", "clear", "flag", "load":
		r := &api.BagRequest{}
		fs.StringVar(&r.Ref, "ref", "", "bag code or id")
		if cmd == "flag" {
			fs.StringVar(&r.Description, "desc", "", "violation description")
		}
		check = func() error { return need(r.Ref != "", "need -ref") }
		in, out = r, &api.Bag{}
		method = map[string]string{
			"bag":      api.MethodGetBag,
			"security": api.MethodAdvanceToSecurity,
			"clear":    api.MethodClearSecurity,
			"flag":     api.MethodFlagViolation,
			"load":     api.MethodLoadBag,
		}[cmd]
	case "bags":
		r := &api.ListBagsRequest{}
		fs.StringVar(&r.Location, "location", "", "location filter")
		fs.StringVar(&r.FlightID, "flight", "", "flight id filter")
		fs.StringVar(&r.PassengerID, "passenger", "", "passenger id filter")
		method, in, out = api.MethodListBags, r, &api.BagList{}

	case "post":
		board, text := fs.String("board", "", "board"), fs.String("text", "", "message")
		file := fs.String("file", "", "read message from file, - for stdin")
		check = func() error {
			if err := need(*board != "" && (*text != "" || *file != ""), "need -board and -text or -file"); err != nil || *file == "" {
				return err
			}
			b, err := readAll(*file)
			if err != nil {
				return err
			}
			*text = strings.TrimSpace(string(b))
			return nil
		}
		method, out = api.MethodPostMessage, &api.Message{}
		in = func() any { return &api.PostMessageRequest{Board: *board, Content: *text} }
	case "feed":
		r := &api.ListBoardRequest{}
		fs.StringVar(&r.Board, "board", "", "board")
		check = func() error { return need(r.Board != "", "need -board") }
		method, in, out = api.MethodListBoard, r, &api.BoardFeed{}
	case "handle", "remove", "depart":
		r := &api.DirectiveRequest{}
		fs.StringVar(&r.MessageID, "msg", "", "message id")
		check = func() error { return need(r.MessageID != "", "need -msg") }
		in, out = r, &api.DirectiveResult{}
		method = map[string]string{
			"handle": api.MethodHandleViolation,
			"remove": api.MethodResolveRemoval,
			"depart": api.MethodDepartFlight,
		}[cmd]
	case "notify":
		r := &api.NotifyDepartureRequest{}
		fs.StringVar(&r.FlightID, "flight", "", "flight id")
		check = func() error { return need(r.FlightID != "", "need -flight") }
		method, in, out = api.MethodNotifyDeparture, r, &api.Message{}
	case "issues":
		method, in, out = api.MethodListIssues, &api.Empty{}, &api.IssueList{}
	default:
		return "", nil, nil, fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	if err := fs.Parse(args); err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if check != nil {
		if err := check(); err != nil {
			return "", nil, nil, err
		}
	}
	if build, ok := in.(func() any); ok {
		in = build()
	}
	return method, in, out, nil
}

// loginRequest parses the login flags.
func loginRequest(args []string) (*api.LoginRequest, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	r := &api.LoginRequest{}
	fs.StringVar(&r.Role, "role", "", "administrator|airline_staff|gate_staff|ground_staff|passenger")
	fs.StringVar(&r.Username, "u", "", "username")
	fs.StringVar(&r.Password, "p", "", "password")
	fs.StringVar(&r.Identification, "id", "", "passenger identification")
	fs.StringVar(&r.TicketNumber, "ticket", "", "passenger ticket number")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if r.Role == "passenger" {
		return r, need(r.Identification != "" && r.TicketNumber != "", "need -id and -ticket")
	}
	return r, need(r.Role != "" && r.Username != "" && r.Password != "", "need -role, -u and -p")
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	var o dialOpts
	flag.StringVar(&o.addr, "addr", "localhost:8443", "server addr")
	flag.StringVar(&o.caPath, "cacert", "", "CA cert (PEM)")
	flag.BoolVar(&o.skipVerify, "insecure", false, "skip cert verify (dev)")
	flag.BoolVar(&o.plaintext, "plaintext", false, "connect without TLS (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case "version":
		fmt.Printf("bt %s (%s)\n", version, buildDate)

	case "login":
		req, err := loginRequest(args)
		if err != nil {
			fail(err)
		}
		cc, cl, err := dial(o, "")
		if err != nil {
			fail(err)
		}
		defer cc.Close()

		var resp api.LoginResponse
		if err := cl.Call(ctx, api.MethodLogin, req, &resp); err != nil {
			fail(err)
		}
		if err := saveToken(&resp); err != nil {
			fail(err)
		}
		printJSON(resp.User)
		if resp.User.RequiresPasswordChange {
			fmt.Fprintln(os.Stderr, "password change required: bt passwd -old ... -new ...")
		}

	case "logout":
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		cc, cl, err := dial(o, token)
		if err != nil {
			fail(err)
		}
		defer cc.Close()
		if err := cl.Call(ctx, api.MethodLogout, &api.Empty{}, &api.Empty{}); err != nil {
			fail(err)
		}
		if err := dropToken(); err != nil {
			fail(err)
		}

	default:
		method, in, out, err := request(cmd, args)
		if err != nil {
			if errors.Is(err, errUsage) {
				fmt.Fprintln(os.Stderr, err)
				usage()
			}
			fail(err)
		}
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		cc, cl, err := dial(o, token)
		if err != nil {
			fail(err)
		}
		defer cc.Close()
		if err := cl.Call(ctx, method, in, out); err != nil {
			fail(err)
		}
		printJSON(out)
	}
}

// ---- helpers ----

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
