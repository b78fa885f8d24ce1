package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/allayhq/api/internal/app"
	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/internal/infra/http"
	"github.com/allayhq/api/internal/infra/http/routes"
	"github.com/allayhq/api/internal/infra/jobs"
	"github.com/allayhq/api/internal/infra/notification"
	"github.com/allayhq/api/internal/infra/postgres"
	"github.com/allayhq/api/internal/infra/redis"
	"github.com/allayhq/api/internal/infra/slackapi"
	"github.com/allayhq/api/internal/infra/sse"
	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/logger"
)

// workerConcurrency is the asynq worker pool size.
const workerConcurrency = 5

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	profileCache, err := redis.NewProfileCache(redisClient, cfg.Slack.ProfileCacheTTL)
	if err != nil {
		log.Error("failed to initialize profile cache", "error", err)
		return 1
	}

	// ==========================================================================
	// Repositories
	// ==========================================================================
	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	tenantRepo := postgres.NewTenantRepository(db)
	conversationRepo := postgres.NewConversationRepository(db)
	slackUserRepo := postgres.NewSlackUserRepository(db)
	slackWorkspaceRepo := postgres.NewSlackWorkspaceRepository(db)

	// ==========================================================================
	// Jobs & Email
	// ==========================================================================
	var mailer notification.Mailer
	if cfg.SMTP.IsConfigured() {
		mailer, err = notification.NewSMTPMailer(&cfg.SMTP, log)
		if err != nil {
			log.Error("failed to initialize mailer", "error", err)
			return 1
		}
	} else {
		log.Warn("SMTP not configured, emails will be logged instead of sent")
		mailer = notification.NewNopMailer(log)
	}

	jobClient, err := jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return 1
	}
	defer closeWithLog(jobClient, "job client", log)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   workerConcurrency,
	}, mailer, log)
	if err != nil {
		log.Error("failed to initialize job worker", "error", err)
		return 1
	}

	// ==========================================================================
	// Slack gateway
	// ==========================================================================
	var gateway app.SlackGateway
	if cfg.Slack.IsConfigured() {
		gateway = slackapi.NewClient(&cfg.Slack, log)
		log.Info("slack gateway initialized")
	} else {
		log.Warn("slack app not configured, relay and profile sync disabled")
	}
	verifier := slackapi.NewSignatureVerifier(cfg.Slack.SigningSecret, cfg.Slack.SignatureMaxAge)

	// ==========================================================================
	// Services
	// ==========================================================================
	hub := sse.NewHub(log)
	defer hub.Close()

	authService := app.NewAuthService(userRepo, sessionRepo, jobClient, cfg.Auth, log)
	tenantService := app.NewTenantService(tenantRepo, userRepo, jobClient, cfg.Auth, log)
	resolver := app.NewProfileResolver(slackUserRepo, slackWorkspaceRepo, profileCache, gateway, log)
	conversationService := app.NewConversationService(conversationRepo, slackWorkspaceRepo, resolver, gateway, hub, log)
	slackService := app.NewSlackService(conversationRepo, slackWorkspaceRepo, resolver, gateway, hub, log)
	log.Info("services initialized")

	// ==========================================================================
	// Scheduled jobs
	// ==========================================================================
	scheduler := cron.New()
	_, err = scheduler.AddFunc("@hourly", func() {
		count, err := authService.CleanupExpiredSessions(context.Background())
		if err != nil {
			log.Error("session cleanup failed", "error", err)
			return
		}
		metrics.SessionsPurged.Add(float64(count))
	})
	if err != nil {
		log.Error("failed to schedule session cleanup", "error", err)
		return 1
	}
	scheduler.Start()
	defer scheduler.Stop()

	// ==========================================================================
	// HTTP server
	// ==========================================================================
	server := http.NewServer(cfg, log)
	routesCleanup := routes.Register(server.Router(), &routes.Dependencies{
		Config:              cfg,
		Logger:              log,
		AuthService:         authService,
		TenantService:       tenantService,
		ConversationService: conversationService,
		SlackService:        slackService,
		Hub:                 hub,
		Verifier:            verifier,
		DB:                  db,
		Redis:               redisClient,
	})
	defer routesCleanup()

	// ==========================================================================
	// Run until signaled
	// ==========================================================================
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start()
	})

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		hub.Close()
		return server.Shutdown(shutdownCtx)
	})

	log.Info("application started", "http_addr", cfg.Server.Addr())

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("application error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

func initLogger(cfg *config.Config) *logger.Logger {
	if cfg.IsDevelopment() {
		return logger.NewDevelopment()
	}
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
