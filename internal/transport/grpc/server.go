package grpc

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/bazaarhq/bazaar/pkg/server"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewServer creates the gRPC server with tracing, panic recovery and call logging, and registers the health service.
func NewServer(cfg config.GrpcServerConfig, h *Health, logger *slog.Logger) *grpc.Server {
	recoveryOpt := recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
		logger.ErrorContext(ctx, "Recovered from gRPC panic", "panic", p, "stack", string(debug.Stack()))
		return status.Error(codes.Internal, "internal server error")
	})
	loggingOpt := logging.WithLogOnEvents(logging.FinishCall)

	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recoveryOpt),
			logging.UnaryServerInterceptor(interceptorLogger(logger), loggingOpt),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpt),
			logging.StreamServerInterceptor(interceptorLogger(logger), loggingOpt),
		),
	}
	s := server.NewGRPCServer(cfg, opts...)
	h.Register(s)
	server.EnableReflection(s, cfg)
	return s
}

// interceptorLogger adapts slog to the logging interceptor.
func interceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}
