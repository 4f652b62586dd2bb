// Package app wires configuration, infrastructure, and domain packages
// together into a running HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hacksprint/hacksprint/internal/admin"
	"github.com/hacksprint/hacksprint/internal/audit"
	"github.com/hacksprint/hacksprint/internal/auth"
	"github.com/hacksprint/hacksprint/internal/config"
	"github.com/hacksprint/hacksprint/internal/httpserver"
	"github.com/hacksprint/hacksprint/internal/platform"
	"github.com/hacksprint/hacksprint/internal/telemetry"
	"github.com/hacksprint/hacksprint/pkg/adminkey"
	"github.com/hacksprint/hacksprint/pkg/card"
	"github.com/hacksprint/hacksprint/pkg/checkin"
	"github.com/hacksprint/hacksprint/pkg/clock"
	"github.com/hacksprint/hacksprint/pkg/mailer"
	"github.com/hacksprint/hacksprint/pkg/notify"
	"github.com/hacksprint/hacksprint/pkg/otp"
	"github.com/hacksprint/hacksprint/pkg/pending"
	"github.com/hacksprint/hacksprint/pkg/registration"
)

// Run is the application entry point: it reads config, connects to
// infrastructure, wires every domain package, and serves HTTP until ctx
// is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting hacksprint", "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := prometheus.NewRegistry()
	for _, c := range telemetry.All() {
		metricsReg.MustRegister(c)
	}

	return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	realClock := clock.Real{}

	durations, err := parseDurations(cfg)
	if err != nil {
		return err
	}

	credentials := registration.NewStore(db, cfg.TeamIDPrefix, cfg.TeamIDWidth, cfg.TeamCodeRetryBudget)

	otpStore := otp.New(realClock, otp.Config{
		TTL:          durations.otpTTL,
		IssueWindow:  durations.otpIssueWindow,
		IssueMax:     cfg.OTPIssueMax,
		VerifyWindow: durations.otpVerifyWindow,
		VerifyMax:    cfg.OTPVerifyMax,
	})
	pendingStore := pending.New(realClock, durations.pendingTTL)

	renderer := card.NewRenderer(cfg.EventBanner, cfg.EventTitle)
	artifacts := card.NewPipeline(renderer, cfg.DocumentTempDir, realClock)

	mail := mailer.New(mailer.Config{
		Host:    cfg.SMTPHost,
		Port:    cfg.SMTPPort,
		User:    cfg.SMTPUser,
		Pass:    cfg.SMTPPass,
		From:    cfg.SMTPFrom,
		Timeout: durations.mailTimeout,
	})

	orchestrator := registration.NewOrchestrator(registration.Deps{
		Credentials:  credentials,
		OTPStore:     otpStore,
		PendingStore: pendingStore,
		Artifacts:    artifacts,
		Mailer:       mail,
		Clock:        realClock,
		Logger:       logger,
		DevMode:      cfg.DevMode,
		MaxMembers:   cfg.MaxTeamMembers,
		MaxTeams:     cfg.MaxTeams,
	})

	sweepStop := startSweeper(ctx, otpStore, pendingStore, durations.sweepInterval, realClock)
	defer sweepStop()

	bus := checkin.NewBus(logger)
	checkinOrchestrator := checkin.NewOrchestrator(credentials, bus, realClock)

	if cfg.SlackBotToken != "" {
		slackNotifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
		go slackNotifier.Run(ctx, bus.Subscribe())
		logger.Info("slack check-in notifications enabled", "channel", cfg.SlackAlertChannel)
	} else {
		logger.Info("slack check-in notifications disabled (SLACK_BOT_TOKEN not set)")
	}

	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	adminWindow, err := time.ParseDuration(cfg.AdminRateLimitWindow)
	if err != nil {
		return fmt.Errorf("parsing admin rate limit window %q: %w", cfg.AdminRateLimitWindow, err)
	}
	adminLimiter := auth.NewRateLimiter(rdb, cfg.AdminRateLimitMax, adminWindow)
	adminKeys := adminkey.NewStore(db)

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg)

	registrationHandler := registration.NewHandler(orchestrator, credentials, artifacts, logger)
	srv.APIRouter.Mount("/", registrationHandler.Routes())

	checkinHandler := checkin.NewHandler(checkinOrchestrator, logger)
	srv.APIRouter.Mount("/", checkinHandler.Routes())

	adminHandler := admin.NewHandler(db, credentials, artifacts, mail, auditWriter, logger)
	statsHandler := admin.NewStatsHandler(adminHandler)
	srv.APIRouter.Get("/stats", statsHandler.HandleStats)

	srv.AdminRouter.Use(auth.RequireAdminKey(adminKeys, adminLimiter, logger))
	srv.AdminRouter.Mount("/", adminHandler.Routes())

	auditHandler := audit.NewHandler(db, logger)
	srv.AdminRouter.Mount("/audit-log", auditHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type sweepDurations struct {
	otpTTL          time.Duration
	otpIssueWindow  time.Duration
	otpVerifyWindow time.Duration
	pendingTTL      time.Duration
	sweepInterval   time.Duration
	mailTimeout     time.Duration
}

func parseDurations(cfg *config.Config) (sweepDurations, error) {
	var d sweepDurations
	var err error

	if d.otpTTL, err = time.ParseDuration(cfg.OTPTTL); err != nil {
		return d, fmt.Errorf("parsing OTP_TTL %q: %w", cfg.OTPTTL, err)
	}
	if d.otpIssueWindow, err = time.ParseDuration(cfg.OTPIssueWindow); err != nil {
		return d, fmt.Errorf("parsing OTP_ISSUE_WINDOW %q: %w", cfg.OTPIssueWindow, err)
	}
	if d.otpVerifyWindow, err = time.ParseDuration(cfg.OTPVerifyWindow); err != nil {
		return d, fmt.Errorf("parsing OTP_VERIFY_WINDOW %q: %w", cfg.OTPVerifyWindow, err)
	}
	if d.pendingTTL, err = time.ParseDuration(cfg.PendingTTL); err != nil {
		return d, fmt.Errorf("parsing PENDING_TTL %q: %w", cfg.PendingTTL, err)
	}
	if d.sweepInterval, err = time.ParseDuration(cfg.SweepInterval); err != nil {
		return d, fmt.Errorf("parsing SWEEP_INTERVAL %q: %w", cfg.SweepInterval, err)
	}
	if d.mailTimeout, err = time.ParseDuration(cfg.MailSendTimeout); err != nil {
		return d, fmt.Errorf("parsing MAIL_SEND_TIMEOUT %q: %w", cfg.MailSendTimeout, err)
	}
	return d, nil
}

// startSweeper runs a ticker-driven goroutine that evicts expired OTP and
// pending-registration entries, stopping when ctx is cancelled.
func startSweeper(ctx context.Context, otpStore *otp.Store, pendingStore *pending.Store, interval time.Duration, c clock.Clock) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := c.Now()
				otpStore.Sweep(now)
				pendingStore.Sweep(now)
			}
		}
	}()
	return func() { <-done }
}
