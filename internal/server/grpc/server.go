// Package grpcserver exposes the bagtrack.v1.Bagtrack gRPC service.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/bagtrack/internal/api"
	"github.com/and161185/bagtrack/internal/errs"
	"github.com/and161185/bagtrack/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	auth       service.AuthService
	flights    service.FlightService
	passengers service.PassengerService
	bags       service.BagService
	escalation service.EscalationService
	log        *zap.Logger
}

// New constructs a gRPC server with injected services.
func New(svc service.Services, log *zap.Logger) *Server {
	return &Server{
		auth:       svc.Auth,
		flights:    svc.Flights,
		passengers: svc.Passengers,
		bags:       svc.Bags,
		escalation: svc.Escalation,
		log:        log,
	}
}

// Register attaches srv to gs under api.ServiceName.
func Register(gs grpc.ServiceRegistrar, srv *Server) {
	gs.RegisterService(&ServiceDesc, srv)
}

// bagtrackServer is the handler type checked by grpc.Server.RegisterService.
type bagtrackServer interface {
	isBagtrackServer()
}

func (*Server) isBagtrackServer() {}

// ServiceDesc describes bagtrack.v1.Bagtrack; messages use the api JSON codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*bagtrackServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodLogin, (*Server).login),
		unary(api.MethodLogout, (*Server).logout),
		unary(api.MethodMe, (*Server).me),
		unary(api.MethodChangePassword, (*Server).changePassword),
		unary(api.MethodCreateStaff, (*Server).createStaff),
		unary(api.MethodRemoveStaff, (*Server).removeStaff),
		unary(api.MethodListStaff, (*Server).listStaff),

		unary(api.MethodCreateFlight, (*Server).createFlight),
		unary(api.MethodGetFlight, (*Server).getFlight),
		unary(api.MethodListFlights, (*Server).listFlights),
		unary(api.MethodReassignGate, (*Server).reassignGate),
		unary(api.MethodFlightReadiness, (*Server).flightReadiness),
		unary(api.MethodRemoveFlight, (*Server).removeFlight),

		unary(api.MethodCreatePassenger, (*Server).createPassenger),
		unary(api.MethodGetPassenger, (*Server).getPassenger),
		unary(api.MethodListPassengers, (*Server).listPassengers),
		unary(api.MethodRemovePassenger, (*Server).removePassenger),
		unary(api.MethodCheckIn, (*Server).checkIn),
		unary(api.MethodBoard, (*Server).board),
		unary(api.MethodReportIssue, (*Server).reportIssue),
		unary(api.MethodDashboard, (*Server).dashboard),

		unary(api.MethodGetBag, (*Server).getBag),
		unary(api.MethodListBags, (*Server).listBags),
		unary(api.MethodAdvanceToSecurity, (*Server).advanceToSecurity),
		unary(api.MethodClearSecurity, (*Server).clearSecurity),
		unary(api.MethodFlagViolation, (*Server).flagViolation),
		unary(api.MethodLoadBag, (*Server).loadBag),

		unary(api.MethodPostMessage, (*Server).postMessage),
		unary(api.MethodListBoard, (*Server).listBoard),
		unary(api.MethodHandleViolation, (*Server).handleViolation),
		unary(api.MethodNotifyDeparture, (*Server).notifyDeparture),
		unary(api.MethodResolveRemoval, (*Server).resolveRemoval),
		unary(api.MethodDepartFlight, (*Server).departFlight),
		unary(api.MethodListIssues, (*Server).listIssues),
	},
	Streams: []grpc.StreamDesc{},
}

// unary adapts a typed handler to grpc.MethodDesc, the way generated code does.
func unary[Req, Resp any](name string, h func(*Server, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			call := func(ctx context.Context, req any) (any, error) {
				out, err := h(s, ctx, req.(*Req))
				if err != nil {
					return nil, s.fail(name, err)
				}
				return out, nil
			}
			if ic == nil {
				return call(ctx, in)
			}
			return ic(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(name)}, call)
		},
	}
}

// fail maps err to a status and logs errors that have no domain meaning.
func (s *Server) fail(method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.log.Error("handler failed", zap.String("method", method), zap.Error(err))
	}
	return st
}

// toStatus maps domain sentinels to gRPC codes. Unknown errors become an
// opaque Internal so storage details never reach clients.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, errs.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, errs.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, errs.ErrConflict):
		code = codes.AlreadyExists
	case errors.Is(err, errs.ErrForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, errs.ErrInvalidState),
		errors.Is(err, errs.ErrPrecondition),
		errors.Is(err, errs.ErrVersionConflict):
		code = codes.FailedPrecondition
	case errors.Is(err, errs.ErrUnauthorized):
		code = codes.Unauthenticated
	case errors.Is(err, errs.ErrRateLimited):
		code = codes.ResourceExhausted
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

// remoteIP is the peer host without its port, so a redial keeps the same limiter key.
func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
