// Command bazaar runs the order placement and payment API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bazaarhq/bazaar/internal/app"
	"github.com/bazaarhq/bazaar/internal/config"
	"github.com/bazaarhq/bazaar/internal/notify"
	"github.com/bazaarhq/bazaar/internal/otp"
	"github.com/bazaarhq/bazaar/migrations"
	"github.com/bazaarhq/bazaar/pkg/auth"
	"github.com/bazaarhq/bazaar/pkg/bootstrap"
	"github.com/bazaarhq/bazaar/pkg/config/configloader"
	"github.com/bazaarhq/bazaar/pkg/messaging"
	natsclient "github.com/bazaarhq/bazaar/pkg/nats"
	"github.com/bazaarhq/bazaar/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "bazaar"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, connects the infrastructure and serves HTTP, gRPC and pprof until ctx is done.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer shutdownWithTimeout(logger, "tracer provider", cfg.Shutdown.Timeout, tp.Shutdown)
	}
	infra := app.Infrastructure{}
	if cfg.Telemetry.Metrics.Enabled {
		mp, handler, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		defer shutdownWithTimeout(logger, "meter provider", cfg.Shutdown.Timeout, mp.Shutdown)
		infra.Metrics = handler
	}

	if cfg.Database.Migrate {
		if err := bootstrap.RunMigrations(migrations.FS, cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("Database migrations applied")
	}
	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create database connection pool: %w", err)
	}
	defer dbPool.Close()
	logger.Info("Successfully connected to the database!")
	infra.DB = dbPool

	redisClient, err := bootstrap.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		infra.KV = otp.NewRedisStore(redisClient)
	} else {
		logger.Warn("Redis is not configured, one-time codes are kept in memory")
		infra.KV = otp.NewMemoryStore()
	}

	natsConn, err := natsclient.NewClient(cfg.Nats)
	if err != nil {
		return fmt.Errorf("failed to create NATS connection: %w", err)
	}
	defer func() { _ = natsConn.Drain() }()
	js, err := natsclient.NewJetStreamContext(natsConn)
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}
	if _, err := natsclient.EnsureStream(ctx, js, messaging.NotificationsStream, messaging.NotificationsSubjects); err != nil {
		return err
	}
	notifier := notify.NewEventNotifier(natsclient.NewNatsPublisher(js), cfg.Notify, logger)
	infra.Notifier = notifier

	if cfg.IdP.Enabled() {
		verifier, err := auth.NewJWTVerifier(ctx, cfg.IdP)
		if err != nil {
			return fmt.Errorf("failed to create token verifier: %w", err)
		}
		infra.Verifier = verifier
		logger.Info("Bearer token authentication enabled", "issuer", cfg.IdP.Issuer)
	}

	deps := app.SetupDependencies(cfg, infra, logger)
	httpServer := app.SetupHttpServer(deps, cfg, serviceName)
	grpcServer := app.SetupGrpcServer(deps, cfg)

	g, gCtx := errgroup.WithContext(ctx)

	// notifications are flushed once in-flight requests have drained
	serveHTTP(g, gCtx, logger, "HTTP", httpServer, cfg.Shutdown.Timeout, func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := notifier.Close(waitCtx); err != nil {
			logger.Warn("Pending notifications were not flushed", "error", err)
		}
	})
	if cfg.PProf.Enabled {
		// http.DefaultServeMux carries the pprof handlers
		serveHTTP(g, gCtx, logger, "pprof", &http.Server{Addr: cfg.PProf.Addr}, cfg.Shutdown.Timeout, nil)
	}

	g.Go(func() error {
		grpcAddr := ":" + cfg.GrpcServer.Port
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			logger.Info("gRPC server stopped gracefully.")
			return nil
		case <-time.After(cfg.Shutdown.Timeout):
			logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
			grpcServer.Stop()
			return fmt.Errorf("grpc server graceful stop timed out")
		}
	})
	g.Go(func() error {
		return deps.Health.Run(gCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// serveHTTP runs srv in g and shuts it down gracefully once ctx is done.
// afterShutdown, when set, runs after Shutdown returns.
func serveHTTP(g *errgroup.Group, ctx context.Context, logger *slog.Logger, name string, srv *http.Server, timeout time.Duration, afterShutdown func()) {
	g.Go(func() error {
		logger.Info(name+" server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down " + name + " server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if afterShutdown != nil {
			afterShutdown()
		}
		return err
	})
}

func shutdownWithTimeout(logger *slog.Logger, name string, timeout time.Duration, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error("Failed to shut down "+name, "error", err)
	}
}
