package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lattice/infrastructure/audit"
	"lattice/infrastructure/cache"
	"lattice/infrastructure/config"
	"lattice/infrastructure/events"
	httpserver "lattice/infrastructure/http"
	"lattice/infrastructure/logger"
	"lattice/infrastructure/metrics"
	"lattice/infrastructure/rbac"
	"lattice/infrastructure/sqlite"
	"lattice/infrastructure/token"
)

// Version is stamped at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of lattice",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lattice version %s\n", Version)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd)
		},
	}

	rootCmd = &cobra.Command{
		Use:   "lattice",
		Short: "Lattice warehouse data server",
		Long:  `Lattice serves the warehouse admin API: bookings, inventory, customers, orders and users.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "", "path to configuration file")
	rootCmd.AddCommand(versionCmd, serveCmd, migrateCmd, seedAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDatabase opens the configured database and brings its schema up to date.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlite.DB, error) {
	db, err := sqlite.Open(cfg.Database.Path, sqlite.Options{
		BusyTimeout:  cfg.Database.BusyTimeout,
		MaxReadConns: cfg.Database.MaxReadConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlite.ApplyMigrations(ctx, db, cfg.Database.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, nil
}

func runMigrate(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	versions, err := sqlite.AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (%d migrations applied)\n", latest(versions), len(versions))
	return nil
}

func latest(versions []int) int {
	n := 0
	for _, v := range versions {
		if v > n {
			n = v
		}
	}
	return n
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if cfg.Auth.JWTSecret == config.DevSecret {
		log.Warn("auth.jwt_secret is the development default; set JWT_SECRET before exposing this server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Error("database unavailable", zap.String("path", cfg.Database.Path), zap.Error(err))
		return err
	}
	defer db.Close()

	rbacSvc := rbac.New(cache.NewRbacRolesCache(), db)
	seeded, err := rbacSvc.EnsureSeeded(ctx)
	if err != nil {
		return err
	}
	if seeded {
		log.Info("seeded default role permissions")
	}

	tokens, err := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	hub := events.NewHub(log, cfg.Events.Buffer)
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
		hub.SetObserver(m)
	}

	if cfg.Events.Redis.Enabled {
		relay, err := events.NewRedisRelay(log, &redis.Options{
			Addr:     cfg.Events.Redis.Addr,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
		}, cfg.Events.Redis.Channel)
		if err != nil {
			return fmt.Errorf("redis relay: %w", err)
		}
		if err := relay.Start(hub); err != nil {
			return fmt.Errorf("redis relay: %w", err)
		}
		defer func() {
			if err := relay.Stop(); err != nil {
				log.Warn("redis relay stop", zap.Error(err))
			}
		}()
	}

	httpserver.ShutdownTimeout = cfg.Server.ShutdownTimeout
	server := httpserver.NewServer(cfg.Server.Addr, httpserver.Deps{
		DB:      db,
		Rbac:    rbacSvc,
		Audit:   audit.NewService(),
		Tokens:  tokens,
		Hub:     hub,
		Metrics: m,
		Log:     log,
	}, httpserver.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		PasswordPolicy: cfg.Auth.PasswordPolicy,
		MetricsPath:    cfg.Metrics.Path,
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	log.Info("lattice started", zap.String("version", Version), zap.String("addr", cfg.Server.Addr))

	<-ctx.Done()
	log.Info("shutting down")
	if err := server.Stop(); err != nil {
		log.Error("graceful shutdown error", zap.Error(err))
	}
	return nil
}
