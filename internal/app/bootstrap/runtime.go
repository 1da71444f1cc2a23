package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/intranet/credential-service/internal/adapters/cache"
	emailadapter "github.com/viralforge/intranet/credential-service/internal/adapters/email"
	eventadapter "github.com/viralforge/intranet/credential-service/internal/adapters/events"
	grpcadapter "github.com/viralforge/intranet/credential-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/intranet/credential-service/internal/adapters/http"
	"github.com/viralforge/intranet/credential-service/internal/adapters/postgres"
	"github.com/viralforge/intranet/credential-service/internal/adapters/security"
	"github.com/viralforge/intranet/credential-service/internal/application"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcHealth *health.Server
	outbox     *eventadapter.OutboxWorker
	tokenPurge *eventadapter.TokenPurgeJob
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logStartup(logger, cfg)

	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	closers = append(closers, sqlDB)

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		cleanup()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	closers = append(closers, redisClient)

	repos := postgres.NewRepositories(pool)
	issuer, err := security.NewHMACIssuer(cfg.SessionSigningKey, cfg.SessionIssuer, cfg.SessionTTL)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init session issuer: %w", err)
	}

	renderer, err := emailadapter.NewRenderer()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	var dispatcher ports.EmailDispatcher
	switch cfg.EmailDriver {
	case "kafka":
		kafkaDispatcher, err := emailadapter.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.KafkaEmailTopic, renderer, cfg.EmailFrom)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init kafka email dispatcher: %w", err)
		}
		closers = append(closers, kafkaDispatcher)
		dispatcher = kafkaDispatcher
	default:
		dispatcher = emailadapter.NewLogDispatcher(logger, renderer, cfg.EmailFrom)
	}

	var publisher ports.EventPublisher = eventadapter.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaEventTopic, nil)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init kafka event publisher: %w", err)
		}
		closers = append(closers, kafkaPublisher)
		publisher = kafkaPublisher
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ResetTokenTTL:              cfg.ResetTokenTTL,
			ConfirmationTokenTTL:       cfg.ConfirmationTokenTTL,
			FailedLoginThreshold:       cfg.FailedLoginThreshold,
			LockoutDuration:            cfg.LockoutDuration,
			RecoveryRateLimitThreshold: cfg.RecoveryRateLimitThreshold,
			RecoveryRateLimitWindow:    cfg.RecoveryRateLimitWindow,
			PublicBaseURL:              cfg.PublicBaseURL,
			DefaultProfile:             cfg.DefaultProfile,
			SuperAdminEmail:            cfg.SuperAdminEmail,
			SuperAdminPassword:         string(cfg.SuperAdminPassword),
		},
		Credentials: repos.Credentials,
		Profiles:    repos.Profiles,
		Dispatcher:  dispatcher,
		Lockouts:    cacheadapter.NewRedisLockoutStore(redisClient),
		Hasher:      security.NewBcryptHasher(cfg.BcryptCost),
		Issuer:      issuer,
	})

	handler := httpadapter.NewHandler(svc, map[string]httpadapter.ReadinessCheck{
		"postgres": sqlDB.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewCredentialInternalServer(svc))

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	tokenPurge := eventadapter.NewTokenPurgeJob(logger, repos.Credentials, cfg.TokenPurgeSchedule, cfg.TokenRetention)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcHealth: healthSrv,
		outbox:     outbox,
		tokenPurge: tokenPurge,
		cleanupFn: func(context.Context) {
			cleanup()
		},
	}, nil
}

// logStartup records the effective topology. Secrets stay out of it.
func logStartup(logger *slog.Logger, cfg Config) {
	logger.Info("bootstrapping credential service",
		"service_id", cfg.ServiceID,
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"email_driver", cfg.EmailDriver,
		"kafka_brokers", len(cfg.KafkaBrokers),
	)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.cfg.SuperAdminEmail != "" {
		res, err := r.service.SeedSuperUser(ctx)
		if err != nil {
			r.logger.Warn("super user seed failed", "error", err)
		} else {
			r.logger.Info("super user seed", "outcome", "success", "created", res.Created)
		}
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.grpcHealth.Shutdown()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

// RunWorker runs the outbox relay and the token purge schedule until the
// process is signalled or one of them fails.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("outbox worker started")
		errCh <- r.outbox.Run(ctx)
	}()
	go func() {
		r.logger.Info("token purge job started", "schedule", r.cfg.TokenPurgeSchedule)
		errCh <- r.tokenPurge.Run(ctx)
	}()

	var runErr error
	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
			runErr = err
			r.logger.Error("worker failure", "error", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	r.cleanupFn(shutdownCtx)
	return runErr
}
