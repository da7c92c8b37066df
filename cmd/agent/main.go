// Command agent runs the on-device side of shiftlog: a local job store that
// reconciles with the configured remote on an interval, plus a one-shot PDF
// export of a stored job.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/shiftlog/shiftlog/internal/config"
	"github.com/shiftlog/shiftlog/internal/export"
	"github.com/shiftlog/shiftlog/internal/remote"
	"github.com/shiftlog/shiftlog/internal/store"
	syncengine "github.com/shiftlog/shiftlog/internal/sync"
	"github.com/shiftlog/shiftlog/pkg/models"
	"github.com/shiftlog/shiftlog/pkg/repository"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		once       = flag.Bool("once", false, "Run a single sync pass and exit")
		exportID   = flag.String("export", "", "Render the stored job with this id as a PDF and exit (admin only)")
		exportOut  = flag.String("out", "report.pdf", "Output path for -export")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	remote.SetLogger(logger)

	st, err := store.Open(cfg.Device.StorePath)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer st.Close()

	if *exportID != "" {
		if err := runExport(cfg, st, *exportID, *exportOut); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		log.Printf("Wrote %s", *exportOut)
		return
	}

	src, err := buildRemote(cfg)
	if err != nil {
		log.Fatalf("Failed to build remote: %v", err)
	}

	engine := syncengine.New(st, src, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runSync(ctx, engine, logger)
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.Device.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Agent exiting")
			return
		case <-ticker.C:
			runSync(ctx, engine, logger)
		}
	}
}

func runSync(ctx context.Context, engine *syncengine.Engine, logger *slog.Logger) {
	report, err := engine.Sync(ctx)
	if err != nil {
		logger.Error("sync finished with errors",
			slog.Any("err", err),
			slog.Int("failures", report.Failures),
		)
	}
	logger.Info("sync pass",
		slog.Int("pushed", report.Pushed),
		slog.Int("pulled", report.Pulled),
		slog.Int("removed", report.Removed),
		slog.Int("pruned", report.Pruned),
	)
}

// buildRemote picks the transport from config. The REST transport logs in
// with credentials from the environment so the token never lands on disk.
func buildRemote(cfg *config.Config) (repository.RemoteSource, error) {
	switch cfg.Device.Remote.Kind {
	case config.RemoteKindSheets:
		httpClient := &http.Client{Timeout: cfg.Device.Remote.Timeout}
		return remote.NewSheetsClient(cfg.Device.Remote.SheetsURL, httpClient)

	case config.RemoteKindREST:
		client, user, err := loginREST(cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("Logged in as %s (%s)", user.Name, user.Role)
		return client, nil

	default:
		return nil, fmt.Errorf("unknown remote kind %q", cfg.Device.Remote.Kind)
	}
}

// loginREST builds the backend client and authenticates with credentials
// from the environment, returning the resolved user.
func loginREST(cfg *config.Config) (*remote.RESTClient, models.Technician, error) {
	httpClient := &http.Client{Timeout: cfg.Device.Remote.Timeout}
	client, err := remote.NewRESTClient(cfg.Device.Remote.BaseURL, httpClient)
	if err != nil {
		return nil, models.Technician{}, err
	}

	techID := os.Getenv("SHIFTLOG_TECH_ID")
	password := os.Getenv("SHIFTLOG_TECH_PASSWORD")
	if techID == "" || password == "" {
		return nil, models.Technician{}, fmt.Errorf("SHIFTLOG_TECH_ID and SHIFTLOG_TECH_PASSWORD must be set for the rest transport")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Device.Remote.Timeout)
	defer cancel()
	user, err := client.Login(ctx, techID, password, cfg.DefaultShift)
	if err != nil {
		return nil, models.Technician{}, fmt.Errorf("login as %s: %w", techID, err)
	}
	return client, user, nil
}

// runExport renders a stored job as a PDF. Export is an administrator
// feature, so the agent authenticates against the backend and refuses any
// other role before touching the store.
func runExport(cfg *config.Config, st *store.Store, id, out string) error {
	if cfg.Device.Remote.Kind != config.RemoteKindREST {
		return fmt.Errorf("export needs the rest transport to verify the admin role; remote kind is %q", cfg.Device.Remote.Kind)
	}

	_, user, err := loginREST(cfg)
	if err != nil {
		return err
	}
	if user.Role != models.RoleAdmin {
		return fmt.Errorf("export is restricted to administrators; logged in as %s (%s)", user.Name, user.Role)
	}

	return exportJob(st, id, out)
}

func exportJob(st *store.Store, id, out string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	jobs, err := st.List(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if job.ID != id {
			continue
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := export.WriteJobReport(f, job); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return fmt.Errorf("no stored job with id %q", id)
}
