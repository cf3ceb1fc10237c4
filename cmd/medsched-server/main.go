package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/config"
	"github.com/medsched/medsched/internal/domain/appointment"
	"github.com/medsched/medsched/internal/domain/clinicalrecord"
	"github.com/medsched/medsched/internal/domain/location"
	"github.com/medsched/medsched/internal/domain/notification"
	"github.com/medsched/medsched/internal/domain/patient"
	"github.com/medsched/medsched/internal/domain/practitioner"
	"github.com/medsched/medsched/internal/domain/prescription"
	"github.com/medsched/medsched/internal/domain/report"
	"github.com/medsched/medsched/internal/domain/schedule"
	"github.com/medsched/medsched/internal/domain/user"
	"github.com/medsched/medsched/internal/platform/auth"
	"github.com/medsched/medsched/internal/platform/db"
	"github.com/medsched/medsched/internal/platform/middleware"
	"github.com/medsched/medsched/internal/platform/notify"
	"github.com/medsched/medsched/internal/platform/reminder"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medsched-server",
		Short: "Medical appointment scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, pool, err := loadAndConnect()
			if err != nil {
				return err
			}
			defer pool.Close()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			count, err := db.NewMigrator(pool, dir).Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, pool, err := loadAndConnect()
			if err != nil {
				return err
			}
			defer pool.Close()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			statuses, err := db.NewMigrator(pool, dir).Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// remindCmd runs one reminder sweep and exits, for cron-style scheduling.
func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send reminders for tomorrow's pending appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, pool, err := loadAndConnect()
			if err != nil {
				return err
			}
			defer pool.Close()

			app := buildApp(cfg, pool, logger)
			sent, err := app.reminderJob.RunOnce(context.Background())
			if err != nil {
				return fmt.Errorf("reminder sweep failed: %w", err)
			}
			fmt.Printf("Sent %d reminder(s).\n", sent)
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || email == "" || password == "" {
				return fmt.Errorf("--username, --email and --password are required")
			}

			cfg, pool, err := loadAndConnect()
			if err != nil {
				return err
			}
			defer pool.Close()

			issuer := auth.NewTokenIssuer(auth.JWTConfig{
				SigningKey: []byte(cfg.JWTSecret),
				Issuer:     cfg.JWTIssuer,
			}, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
			svc := user.NewService(user.NewRepoPG(pool), user.NewInvitationRepoPG(pool), issuer, nil)

			u, err := svc.Register(context.Background(), username, email, password, auth.RoleAdmin)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Printf("Admin account %s created (%s).\n", u.Username, u.ID)
			return nil
		},
	}
	createAdminCmd.Flags().String("username", "", "Admin username")
	createAdminCmd.Flags().String("email", "", "Admin email")
	createAdminCmd.Flags().String("password", "", "Admin password")
	cmd.AddCommand(createAdminCmd)

	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func loadAndConnect() (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

// app bundles the wired services the commands need.
type app struct {
	userHandler    *user.Handler
	handlers       []routeRegistrar
	reminderJob    *reminder.Job
	jwtConfig      auth.JWTConfig
	reminderConfig struct {
		enabled  bool
		interval time.Duration
	}
}

type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

// buildApp wires repositories, services and handlers. Cross-domain calls go
// through the consumer-side interfaces each service declares, so the wiring
// here is the only place that knows the whole graph.
func buildApp(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *app {
	jwtCfg := auth.JWTConfig{SigningKey: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer}
	tokenIssuer := auth.NewTokenIssuer(jwtCfg, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	locationSvc := location.NewService(location.NewRepoPG(pool))
	scheduleSvc := schedule.NewService(schedule.NewRepoPG(pool))
	practitionerSvc := practitioner.NewService(
		practitioner.NewDoctorRepoPG(pool),
		practitioner.NewSpecialtyRepoPG(pool),
		scheduleSvc,
	)

	// Delivery strategies: real SMTP for email, log-backed simulation for SMS.
	strategies := notify.NewRegistry(
		notify.NewSMTPEmailStrategy(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}),
		notify.NewLogSMSStrategy(logger),
	)
	notificationSvc := notification.NewService(
		notification.NewRepoPG(pool),
		patientSvc, practitionerSvc,
		strategies, notify.NewTemplateEngine(), logger,
	)

	appointmentSvc := appointment.NewService(
		appointment.NewRepoPG(pool),
		patientSvc, practitionerSvc, scheduleSvc, notificationSvc,
	)
	clinicalSvc := clinicalrecord.NewService(clinicalrecord.NewRepoPG(pool), appointmentSvc)
	prescriptionSvc := prescription.NewService(
		prescription.NewRepoPG(pool),
		prescription.NewMedicationRepoPG(pool),
		patientSvc, practitionerSvc,
	)
	reportSvc := report.NewService(report.NewRepoPG(pool))
	userSvc := user.NewService(user.NewRepoPG(pool), user.NewInvitationRepoPG(pool), tokenIssuer, notificationSvc)

	a := &app{
		userHandler: user.NewHandler(userSvc),
		handlers: []routeRegistrar{
			patient.NewHandler(patientSvc),
			practitioner.NewHandler(practitionerSvc),
			location.NewHandler(locationSvc),
			schedule.NewHandler(scheduleSvc),
			appointment.NewHandler(appointmentSvc, patientSvc),
			clinicalrecord.NewHandler(clinicalSvc),
			prescription.NewHandler(prescriptionSvc),
			notification.NewHandler(notificationSvc),
			report.NewHandler(reportSvc),
		},
		reminderJob: reminder.NewJob(appointmentSvc, notificationSvc, logger),
		jwtConfig:   jwtCfg,
	}
	a.reminderConfig.enabled = cfg.ReminderEnabled
	a.reminderConfig.interval = cfg.ReminderInterval
	return a
}

func runServer() error {
	logger := newLogger()

	cfg, pool, err := loadAndConnect()
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	application := buildApp(cfg, pool, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Login, register and refresh stay outside the JWT middleware.
	application.userHandler.RegisterPublicRoutes(apiV1)

	protected := apiV1.Group("", auth.JWTMiddleware(application.jwtConfig))
	application.userHandler.RegisterRoutes(protected)
	for _, h := range application.handlers {
		h.RegisterRoutes(protected)
	}

	// Background reminder sweep.
	reminderCtx, stopReminder := context.WithCancel(context.Background())
	defer stopReminder()
	if application.reminderConfig.enabled {
		go application.reminderJob.Run(reminderCtx, application.reminderConfig.interval)
		logger.Info().Dur("interval", application.reminderConfig.interval).Msg("reminder job started")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stopReminder()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
