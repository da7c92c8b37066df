package api

import (
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"

	dbassets "github.com/shiftlog/shiftlog/db"
	"github.com/shiftlog/shiftlog/internal/config"
	"github.com/shiftlog/shiftlog/internal/db"
	"github.com/shiftlog/shiftlog/internal/repository/sqlite"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, conn *db.DB) (*mux.Router, error) {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(conn, logger)

	schema, err := loadTaskSchema()
	if err != nil {
		return nil, err
	}

	// Create handlers
	systemHandler := NewSystemHandler(conn)
	authHandler := NewAuthHandler(repo, cfg.JWTSecret, cfg.TokenDuration, cfg.DefaultShift)
	tasksHandler := NewTasksHandler(repo, schema)

	// Open endpoints
	r.HandleFunc("/api/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/api/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/api/public/technicians", authHandler.Technicians).Methods("GET")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	protected.HandleFunc("/tasks", tasksHandler.List).Methods("GET")
	protected.HandleFunc("/tasks/{id}", tasksHandler.Upsert).Methods("PUT")

	// Hard deletion stays admin-only
	adminOnly := protected.NewRoute().Subrouter()
	adminOnly.Use(RequireAdmin)
	adminOnly.HandleFunc("/tasks/{id}", tasksHandler.Delete).Methods("DELETE")

	return r, nil
}

// loadTaskSchema compiles the embedded task payload schema.
func loadTaskSchema() (*jsonschema.Schema, error) {
	b, err := fs.ReadFile(dbassets.SeedFiles, "seed/task_schema_v1.json")
	if err != nil {
		return nil, fmt.Errorf("read task schema: %w", err)
	}

	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(b, rs); err != nil {
		return nil, fmt.Errorf("compile task schema: %w", err)
	}

	return rs, nil
}
