package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shiftlog/shiftlog/api"
	dbfs "github.com/shiftlog/shiftlog/db"
	"github.com/shiftlog/shiftlog/internal/config"
	"github.com/shiftlog/shiftlog/internal/db"
	"github.com/shiftlog/shiftlog/internal/repository/sqlite"
	"github.com/shiftlog/shiftlog/pkg/models"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting shiftlog server version %s (built at %s)", version, buildTime)

	ctx := context.Background()

	// Open database connection
	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}

	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := seedTechnicians(ctx, conn, cfg.SeedUsers); err != nil {
		log.Fatalf("Failed to seed technicians: %v", err)
	}

	handler, err := api.SetupRoutes(cfg, version, buildTime, conn)
	if err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Close database connection
	if err := conn.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Server exited")
}

// seedTechnicians upserts the configured accounts so a fresh install can log
// in without a separate provisioning step. Passwords are hashed here; the
// plaintext never reaches the database.
func seedTechnicians(ctx context.Context, conn *db.DB, seeds []config.SeedTechnician) error {
	if len(seeds) == 0 {
		return nil
	}

	repo := sqlite.New(conn, nil)
	for _, s := range seeds {
		if s.ID == "" || s.Password == "" {
			log.Printf("Skipping seed technician with missing id or password: %q", s.ID)
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		role := models.RoleTech
		if s.Role == string(models.RoleAdmin) {
			role = models.RoleAdmin
		}
		tech := models.Technician{ID: s.ID, Name: s.Name, Role: role, PasswordHash: string(hash)}
		if err := repo.UpsertTechnician(ctx, &tech); err != nil {
			return err
		}
	}
	return nil
}
