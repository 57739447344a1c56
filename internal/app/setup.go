// Package app wires the bazaar API server together.
package app

import (
	"log/slog"
	"net/http"

	"github.com/bazaarhq/bazaar/internal/config"
	"github.com/bazaarhq/bazaar/internal/gateway"
	"github.com/bazaarhq/bazaar/internal/notify"
	"github.com/bazaarhq/bazaar/internal/otp"
	"github.com/bazaarhq/bazaar/internal/service"
	"github.com/bazaarhq/bazaar/internal/store"
	grpcImpl "github.com/bazaarhq/bazaar/internal/transport/grpc"
	"github.com/bazaarhq/bazaar/internal/transport/rest"
	"github.com/bazaarhq/bazaar/pkg/auth"
	"github.com/bazaarhq/bazaar/pkg/server"
	"github.com/bazaarhq/bazaar/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"
)

// Infrastructure holds the connections the services are built on.
type Infrastructure struct {
	DB       *pgxpool.Pool
	KV       otp.Store
	Notifier notify.Notifier
	// Gateway overrides the HTTP gateway client built from config, when set.
	Gateway gateway.Gateway
	// Verifier switches authentication from the X-User-Id header to bearer tokens, when set.
	Verifier auth.Verifier
	// Metrics is the Prometheus scrape handler, mounted when set.
	Metrics http.Handler
}

type Dependencies struct {
	CartService    service.CartService
	OrderService   service.OrderService
	PaymentService service.PaymentService
	OTPService     service.OTPService
	DB             *pgxpool.Pool
	Health         *grpcImpl.Health
	Verifier       auth.Verifier
	Metrics        http.Handler
	MetricsPath    string
	Logger         *slog.Logger
}

func SetupDependencies(cfg *config.Config, infra Infrastructure, logger *slog.Logger) *Dependencies {
	pgStore := store.NewPgStore(infra.DB, cfg.Database.TxAttempts)
	gw := infra.Gateway
	if gw == nil {
		gw = gateway.NewClient(cfg.Gateway, nil)
	}

	return &Dependencies{
		CartService:    service.NewCartService(pgStore),
		OrderService:   service.NewOrderService(pgStore, pgStore, pgStore, infra.Notifier),
		PaymentService: service.NewPaymentService(pgStore, pgStore, pgStore, gw, infra.Notifier, cfg.Gateway),
		OTPService:     service.NewOTPService(pgStore, infra.KV, infra.Notifier, cfg.OTP),
		DB:             infra.DB,
		Health:         grpcImpl.NewHealth(infra.DB, cfg.GrpcServer.HealthInterval, logger),
		Verifier:       infra.Verifier,
		Metrics:        infra.Metrics,
		MetricsPath:    cfg.Telemetry.Metrics.Path,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the router with its middleware and routes.
// Used by E2E tests to exercise the API without a listening server.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	authenticate := web.HeaderAuth
	if deps.Verifier != nil {
		authenticate = web.BearerAuth(deps.Verifier)
	}
	handler := rest.NewHandler(deps.CartService, deps.OrderService, deps.PaymentService, deps.OTPService, deps.DB, deps.Logger)
	handler.RegisterRoutes(mux, authenticate)
	if deps.Metrics != nil {
		mux.Handle(deps.MetricsPath, deps.Metrics)
	}
}

// SetupHttpServer creates the traced HTTP server of the API.
func SetupHttpServer(deps *Dependencies, cfg *config.Config, serviceName string) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, serviceName, SetupHttpHandler(deps))
}

// SetupGrpcServer creates the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, cfg *config.Config) *grpc.Server {
	return grpcImpl.NewServer(cfg.GrpcServer, deps.Health, deps.Logger)
}
