package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/config"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/policy"
	"github.com/diewo77/garage-manager/internal/services"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "garage-manager",
		Short:         "Multi-tenant garage management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	var useSQL bool
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run DB migrations and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			if useSQL {
				if cfg.Database.Driver != "postgres" {
					return errors.New("--sql requires DB_DRIVER=postgres")
				}
				if err := db.MigrateSQL(cfg.Database.URL()); err != nil {
					return err
				}
				logrus.Info("sql migrations applied")
				return nil
			}
			gdb, err := db.Open(cfg.Database)
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			logrus.Info("migrations completed")
			return nil
		},
	}
	migrateCmd.Flags().BoolVar(&useSQL, "sql", false, "apply the embedded SQL migrations instead of AutoMigrate")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed permissions and system roles, then exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, gdb, err := openDB()
			if err != nil {
				return err
			}
			if err := db.Seed(gdb); err != nil {
				return err
			}
			logrus.Info("seeding completed")
			return nil
		},
	}

	var email, name, password string
	superAdminCmd := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Create a platform super-admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, gdb, err := openDB()
			if err != nil {
				return err
			}
			u, err := services.NewAdminService(gdb).CreateSuperAdmin(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("super-admin created")
			return nil
		},
	}
	superAdminCmd.Flags().StringVar(&email, "email", "", "login email")
	superAdminCmd.Flags().StringVar(&name, "name", "", "display name")
	superAdminCmd.Flags().StringVar(&password, "password", "", "password (min 8 characters)")
	_ = superAdminCmd.MarkFlagRequired("email")
	_ = superAdminCmd.MarkFlagRequired("password")

	root.AddCommand(serveCmd, migrateCmd, seedCmd, superAdminCmd)
	return root
}

// setup loads .env and the configuration, then configures logging.
func setup() (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.App.Dev {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logrus.SetLevel(level)
	httpx.SetDebug(cfg.App.Dev)
	return cfg, nil
}

// openDB connects and brings the schema up to date.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := setup()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.App.Migrations || cfg.Database.Driver == "sqlite" {
		if err := db.Migrate(gdb); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		logrus.Info("migrations completed")
	}
	return cfg, gdb, nil
}

func serve(ctx context.Context) error {
	cfg, gdb, err := openDB()
	if err != nil {
		return err
	}

	// Seed default data (permissions, system roles)
	if err := db.Seed(gdb); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	routerCfg := policy.NewRouterConfig(gdb, issuer, cfg.Auth.PermissionCacheTTL)
	appHandler := NewApp(gdb, routerCfg, issuer, services.NewLogNotifier(), cfg.App)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.Server.Port, "dev": cfg.App.Dev}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-sigCtx.Done():
		logrus.Info("shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logrus.Info("server stopped gracefully")
	return nil
}
