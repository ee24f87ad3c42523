package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/bagtrack/internal/api"
	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/service"
)

// callInfo is filled by AuthUnary so LoggingUnary can name the caller.
type callInfo struct {
	role string
	user string
}

type callInfoKey struct{}

// logLevel keeps client mistakes at Info, access problems at Warn and the rest at Error.
func logLevel(code codes.Code) zapcore.Level {
	switch code {
	case codes.OK, codes.InvalidArgument, codes.NotFound, codes.AlreadyExists, codes.FailedPrecondition, codes.Canceled:
		return zapcore.InfoLevel
	case codes.Unauthenticated, codes.PermissionDenied, codes.ResourceExhausted:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}

// LoggingUnary returns a unary server interceptor for structured logging.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ci := &callInfo{}
		resp, err := next(context.WithValue(ctx, callInfoKey{}, ci), req)
		code := status.Code(err)

		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		// metadata only, payloads carry personal data
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", remote),
		}
		if ci.role != "" {
			fields = append(fields, zap.String("role", ci.role), zap.String("user", ci.user))
		}
		if ce := log.Check(logLevel(code), "grpc"); ce != nil {
			ce.Write(fields...)
		}
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return next(ctx, req)
	}
}

// publicMethods need no bearer token.
var publicMethods = map[string]bool{
	api.FullMethod(api.MethodLogin): true,
}

// rotationMethods stay reachable while a password change is pending.
var rotationMethods = map[string]bool{
	api.FullMethod(api.MethodChangePassword): true,
	api.FullMethod(api.MethodLogout):         true,
	api.FullMethod(api.MethodMe):             true,
}

// AuthUnary resolves the bearer token into a principal and stores it in ctx.
func AuthUnary(auth service.AuthService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return next(ctx, req)
		}
		tok, err := bearerTokenFromMD(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		p, err := auth.Authenticate(ctx, tok)
		if err != nil {
			return nil, toStatus(err)
		}
		if model.RequiresPasswordChange(p) && !rotationMethods[info.FullMethod] {
			return nil, status.Error(codes.FailedPrecondition, "password change required")
		}
		if ci, ok := ctx.Value(callInfoKey{}).(*callInfo); ok {
			ci.role, ci.user = string(p.Role()), p.PrincipalID().String()
		}
		return next(WithPrincipal(ctx, p), req)
	}
}
