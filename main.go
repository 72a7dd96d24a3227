// main.go - Entry point for the patient registry server and its admin tools
//
// Commands:
//   registry serve                         run the web application (default)
//   registry import <file.xlsx> --user X   bulk-load patients from a spreadsheet
//   registry create-admin --username --password

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

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"patient-registry/auth"
	"patient-registry/config"
	"patient-registry/database"
	"patient-registry/events"
	"patient-registry/handlers"
	"patient-registry/importer"
	"patient-registry/models"
	"patient-registry/router"
	"patient-registry/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "registry",
		Short:         "Hospital patient registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(createAdminCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the registry web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import patients from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("user")
			sheet, _ := cmd.Flags().GetString("sheet")

			cfg, logger, db, err := bootstrap()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			creator, err := store.NewUsers(db).GetByUsername(ctx, username)
			if err != nil {
				return fmt.Errorf("look up importing user %q: %w", username, err)
			}

			tally, err := importer.New(db, creator, logger).ImportFile(ctx, args[0], sheet)
			if err != nil {
				return err
			}

			fmt.Printf("Import into %s finished.\n", cfg.DBDriver)
			fmt.Printf("%-10s %d\n", "Rows:", tally.Total)
			fmt.Printf("%-10s %d\n", "Imported:", tally.Success)
			fmt.Printf("%-10s %d\n", "Skipped:", tally.Skipped)
			fmt.Printf("%-10s %d\n", "Errors:", tally.Errors)
			return nil
		},
	}
	cmd.Flags().String("user", "admin", "Username recorded as creator of the imported patients")
	cmd.Flags().String("sheet", "", "Sheet to read (defaults to the first sheet)")
	return cmd
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if len(username) < 3 || len(password) < 6 {
				return errors.New("username needs at least 3 characters and password at least 6")
			}
			if len(password) > auth.MaxPasswordBytes { // bcrypt refuses longer input
				return fmt.Errorf("password must be at most %d bytes", auth.MaxPasswordBytes)
			}

			_, _, db, err := bootstrap()
			if err != nil {
				return err
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			admin := &models.User{Username: username, PasswordHash: hash, Role: models.RoleAdmin}
			if err := store.NewUsers(db).Create(cmd.Context(), admin); err != nil {
				return fmt.Errorf("create admin %q: %w", username, err)
			}
			fmt.Printf("Admin %q created (id %d).\n", admin.Username, admin.ID)
			return nil
		},
	}
	cmd.Flags().String("username", "", "Admin username")
	cmd.Flags().String("password", "", "Admin password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// bootstrap loads config, builds the logger and opens the migrated database.
func bootstrap() (*config.Config, zerolog.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.Env)

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, logger, nil, err
	}
	return cfg, logger, db, nil
}

func runServer(ctx context.Context) error {
	// STEP 1: Load configuration and establish connections
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	st := store.New(db)

	if cfg.CreateAdmin {
		created, err := database.EnsureAdmin(ctx, st.Users, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Warn().Str("username", cfg.AdminUsername).Msg("bootstrap admin created, change its password")
		}
	}

	var pub events.Publisher = events.Nop{}
	if cfg.MQTTBroker != "" {
		mqttPub, err := events.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic, logger)
		if err != nil {
			return err
		}
		pub = mqttPub
	}
	defer pub.Close()

	// STEP 2: Build the router
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	h := handlers.New(st, sessions, pub, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(h, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// STEP 3: Serve until interrupted, then drain in-flight requests
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("registry listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
