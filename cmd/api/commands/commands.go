package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexusplan/core/internal/adapters/repository"
	"github.com/nexusplan/core/internal/adapters/storage"
	"github.com/nexusplan/core/internal/application/notify"
	"github.com/nexusplan/core/internal/application/services"
	"github.com/nexusplan/core/internal/application/store"
	syncbridge "github.com/nexusplan/core/internal/application/sync"
	"github.com/nexusplan/core/internal/infrastructure/config"
	"github.com/nexusplan/core/internal/infrastructure/database"
	"github.com/nexusplan/core/internal/infrastructure/logger"
	"github.com/nexusplan/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the NexusPlan server",
		Long:  "Start the NexusPlan server with the local store, change feed and optional cloud sync",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Cloud database migration commands",
		Long:  "Manage cloud sync database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up", 0)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down", 0)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewUserCommand creates the account management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Cloud account management commands",
		Long:  "Create and manage cloud sync accounts",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new cloud account",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			displayName, _ := cmd.Flags().GetString("display-name")

			if email == "" || password == "" {
				log.Fatal("Email and password are required")
			}

			createUser(email, password, displayName)
		},
	}

	createUserCmd.Flags().String("email", "", "Account email (required)")
	createUserCmd.Flags().String("password", "", "Account password (required)")
	createUserCmd.Flags().String("display-name", "", "Display name")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print NexusPlan version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("NexusPlan Core v1.0.0")
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	// Each process gets its own writer id so the cross-process watcher can
	// tell foreign writes from its own.
	writerID := uuid.NewString()

	medium, err := storage.NewSQLiteMedium(cfg.Storage.Path, writerID)
	if err != nil {
		appLogger.Fatalw("Failed to open local store", "error", err, "path", cfg.Storage.Path)
	}
	defer medium.Close()

	notifier := notify.New()
	st := store.New(medium, notifier, appLogger)
	planner := services.NewPlannerService(st, appLogger)

	deps := server.Dependencies{
		Store:    st,
		Medium:   medium,
		Notifier: notifier,
		Planner:  planner,
	}

	if cfg.Sync.Enabled {
		db, err := database.New(cfg.Database)
		if err != nil {
			appLogger.Fatalw("Failed to connect to cloud database", "error", err)
		}
		defer db.Close()

		userRepo := repository.NewUserRepository(db.DB)
		remoteRepo := repository.NewRemoteDataRepository(db.DB, cfg.Database.GetDSN(), appLogger)

		bridge := syncbridge.New(st, remoteRepo, cfg.Sync, appLogger)
		defer bridge.Close()
		st.SetPropagator(bridge)

		auth := services.NewAuthService(userRepo, cfg.JWT, appLogger)
		auth.OnStateChange(bridge.HandleAuthChange)

		deps.DB = db
		deps.Bridge = bridge
		deps.Auth = auth
	}

	watcher, err := storage.NewWatcher(medium.Path(), medium, notifier, writerID, appLogger)
	if err != nil {
		appLogger.Warnw("Cross-process watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	srv, err := server.New(cfg, deps, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting NexusPlan server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"sync_enabled", cfg.Sync.Enabled,
	)

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			appLogger.Infow("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorw("Server shutdown failed", "error", err)
	}
}

func runMigration(direction string, steps int) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to create migration driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Migration failed: %v", err)
	}

	if err == migrate.ErrNoChange {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to create migration driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
}

func createUser(email, password, displayName string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	query := `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var userID string
	err = db.DB.QueryRow(query, uuid.NewString(), email, displayName, string(hashedPassword)).Scan(&userID)
	if err != nil {
		log.Fatalf("Failed to create account: %v", err)
	}

	fmt.Printf("Account created successfully:\n")
	fmt.Printf("  ID: %s\n", userID)
	fmt.Printf("  Email: %s\n", email)
	if displayName != "" {
		fmt.Printf("  Name: %s\n", displayName)
	}
}
