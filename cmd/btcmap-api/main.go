package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Unbanked0/btcmap-api/internal/config"
	"github.com/Unbanked0/btcmap-api/internal/db"
	"github.com/Unbanked0/btcmap-api/internal/export"
	"github.com/Unbanked0/btcmap-api/internal/notify"
	"github.com/Unbanked0/btcmap-api/internal/osm"
	"github.com/Unbanked0/btcmap-api/internal/report"
	"github.com/Unbanked0/btcmap-api/internal/repository"
	"github.com/Unbanked0/btcmap-api/internal/server"
	syncer "github.com/Unbanked0/btcmap-api/internal/sync"
	"github.com/Unbanked0/btcmap-api/internal/users"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, conn.Pool, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := repository.NewStore(conn)

	command := "server"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "server":
		runServer(cfg, store)
	case "sync":
		summary := runSync(ctx, cfg, store)
		runReports(ctx, cfg, store, report.ChangeCounts{
			Created: summary.Created,
			Updated: summary.Updated,
			Deleted: summary.Deleted,
		})
	case "generate-reports":
		runReports(ctx, cfg, store, report.ChangeCounts{})
	case "export-reports":
		runExport(ctx, cfg, store, os.Args[2:])
	default:
		log.Fatalf("Unknown command %q, want server, sync, generate-reports or export-reports", command)
	}
}

func runServer(cfg config.Config, store repository.Store) {
	handler := server.NewHandler(store, cfg.Server.AllowedOrigins)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting API server on :%d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func runSync(ctx context.Context, cfg config.Config, store repository.Store) syncer.Summary {
	overpass := osm.NewOverpassClient(cfg.Sync.OverpassURL, cfg.Sync.OverpassQuery, cfg.Sync.OverpassTimeout)
	osmClient := osm.NewClient(cfg.Sync.OsmAPIURL, cfg.Sync.OsmAPITimeout)
	notifier := notify.NewDiscord(cfg.Notifier.DiscordWebhookURL)
	resolver := users.NewResolver(store.Users(), osmClient, cfg.Sync.UserLookupTimeout)
	guard := syncer.NewGuard(cfg.Sync.MinElements)

	service := syncer.NewService(store, overpass, osmClient, resolver, notifier, guard)
	summary, err := service.Run(ctx)
	if err != nil {
		// A contradiction means the fetched dataset cannot be trusted at
		// all; nothing was written and the operator has to look at it.
		if errors.Is(err, syncer.ErrContradiction) {
			log.Fatalf("Sync aborted, upstream contradiction: %v", err)
		}
		log.Fatalf("Sync failed: %v", err)
	}
	return summary
}

func runReports(ctx context.Context, cfg config.Config, store repository.Store, counts report.ChangeCounts) {
	var strategy report.WriteStrategy
	switch cfg.Reports.Strategy {
	case "cumulative":
		strategy = report.CumulativeStrategy{}
	default:
		strategy = report.SnapshotStrategy{}
	}

	aggregator := report.NewAggregator(store, strategy)
	if _, err := aggregator.Run(ctx, counts); err != nil {
		log.Fatalf("Report generation failed: %v", err)
	}
}

func runExport(ctx context.Context, cfg config.Config, store repository.Store, args []string) {
	if len(args) != 3 {
		log.Fatal("Usage: btcmap-api export-reports <area-alias> <from YYYY-MM-DD> <to YYYY-MM-DD>")
	}
	from, err := time.Parse("2006-01-02", args[1])
	if err != nil {
		log.Fatalf("Invalid from date: %v", err)
	}
	to, err := time.Parse("2006-01-02", args[2])
	if err != nil {
		log.Fatalf("Invalid to date: %v", err)
	}

	service := export.NewService(store, export.WithExportDirectory(cfg.Export.Directory))
	path, err := service.ExportReports(ctx, args[0], from, to)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	log.Printf("Export written to %s", path)
}
