package server

import (
	"github.com/bazaarhq/bazaar/pkg/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer builds a gRPC server from cfg. Services are registered by the caller
// before Serve; reflection is added last so it lists all of them.
func NewGRPCServer(cfg config.GrpcServerConfig, opts ...grpc.ServerOption) *grpc.Server {
	if cfg.MaxConnectionIdle > 0 {
		opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: cfg.MaxConnectionIdle,
		}))
	}
	return grpc.NewServer(opts...)
}

// EnableReflection registers the reflection service when cfg asks for it.
func EnableReflection(s *grpc.Server, cfg config.GrpcServerConfig) {
	if cfg.ReflectionEnabled {
		reflection.Register(s)
	}
}
