package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dtroode/learnsync/database"
	"github.com/dtroode/learnsync/internal/config"
	"github.com/dtroode/learnsync/internal/connectivity"
	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/messaging/amqp"
	"github.com/dtroode/learnsync/internal/model"
	"github.com/dtroode/learnsync/internal/repository/postgres"
	"github.com/dtroode/learnsync/internal/service"
	"github.com/dtroode/learnsync/internal/snapshot"
	storage "github.com/dtroode/learnsync/internal/storage/minio"
	"github.com/dtroode/learnsync/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	_ = godotenv.Load() // load .env if present

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	cli := &commandLine{
		out: os.Stdout,
		migrate: func(ctx context.Context) error {
			return database.Migrate(ctx, cfg.Database.DSN)
		},
	}

	var a *app
	if needsSession(os.Args) {
		a, err = newApp(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize", "error", err)
		}
		cli.sessions = a.sessions
		cli.identity = a.identity
	}

	code := 0
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Debug("command failed", "error", err)
			fmt.Fprintf(os.Stderr, "error: %s\n", errorMessage(err))
		}
		code = 1
	}

	if a != nil {
		a.Close()
	}
	stop()
	os.Exit(code)
}

func printVersion(w io.Writer) {
	tmpl := `Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Fprintf(w, tmpl, buildVersion, buildDate, buildCommit)
}

type app struct {
	sessions *service.SessionManager
	identity *service.Identity
	closers  []func() error
	logger   *logger.Logger
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", "error", err)
		}
	}
}

// newApp probes the remote store once and wires every service for the chosen mode.
func newApp(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*app, error) {
	a := &app{logger: logger}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, cfg.Database.DSN); err != nil {
			logger.Warn("failed to apply migrations", "error", err)
		}
	}

	mode := probe(ctx, cfg, logger)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN,
		postgres.WithMaxConns(cfg.Database.MaxConns),
		postgres.WithConnLifetime(cfg.Database.ConnLifetime),
	)
	if err != nil {
		if mode == model.BackendRemote {
			return nil, err
		}
		logger.Warn("failed to create connection pool", "error", err)
		db = &postgres.Connection{}
	}
	a.closers = append(a.closers, db.Close)

	kv, err := newSnapshotStore(cfg.Snapshot)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := kv.(io.Closer); ok {
		a.closers = append(a.closers, closer.Close)
	}
	snap := snapshot.New(kv)

	var events model.EventPublisher = amqp.Noop{}
	if cfg.Events.URL != "" {
		publisher, err := amqp.NewPublisher(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			logger.Warn("failed to connect event publisher, events disabled", "error", err)
		} else {
			events = publisher
			a.closers = append(a.closers, publisher.Close)
		}
	}

	var certStorage model.Storage
	if mode == model.BackendRemote {
		certStorage = newCertificateStorage(ctx, cfg.Storage, logger)
	}

	identityRepo := postgres.NewIdentityRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	enrollmentRepo := postgres.NewEnrollmentRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	completionRepo := postgres.NewCompletionRepository(db)
	certificateRepo := postgres.NewCertificateRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret)

	identity := service.NewIdentity(identityRepo, refreshTokenRepo, tokenManager, cfg.Auth.RequireConfirmation, cfg.Auth.BcryptCost, logger)
	certificates := service.NewCertificates(certificateRepo, certStorage, logger)
	gateway := service.NewGateway(identity, profileRepo, accountRepo, snap, events, cfg.Auth.BcryptCost, logger)
	ledger := service.NewLedger(enrollmentRepo, completionRepo, certificates, snap, events, logger)
	profile := service.NewProfile(profileRepo, snap, logger)

	a.identity = identity
	a.sessions = service.NewSessionManager(mode, gateway, ledger, profile, snap, logger)
	return a, nil
}

func probe(ctx context.Context, cfg *config.Config, logger *logger.Logger) model.BackendMode {
	var q connectivity.Querier
	sqlDB, err := connectivity.Open(cfg.Database.DSN)
	if err != nil {
		logger.Warn("failed to open probe handle", "error", err)
	} else {
		defer sqlDB.Close()
		q = sqlDB
	}
	mode := connectivity.NewProbe(q, cfg.Database.ProbeTimeout, logger).Check(ctx)
	logger.Info("backend selected", "mode", mode.String())
	return mode
}

func newSnapshotStore(cfg config.Snapshot) (model.KeyValueStore, error) {
	switch cfg.Driver {
	case config.SnapshotDriverRedis:
		return snapshot.NewRedisStore(snapshot.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)), nil
	case config.SnapshotDriverMemory:
		return snapshot.NewMemoryStore(), nil
	default:
		return snapshot.NewFileStore(cfg.Dir)
	}
}

// newCertificateStorage returns nil when object storage is unavailable.
// Completions are then left pending until reconciled.
func newCertificateStorage(ctx context.Context, cfg config.Storage, logger *logger.Logger) model.Storage {
	minioClient, err := storage.Dial(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.UseSSL)
	if err != nil {
		logger.Warn("failed to create minio client", "error", err)
		return nil
	}
	client, err := storage.NewClient(ctx, minioClient, cfg.Bucket)
	if err != nil {
		logger.Warn("failed to initialize certificate storage", "error", err)
		return nil
	}
	return client
}
