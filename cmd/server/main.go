/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the RadVenture economy engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load TOML config (defaults apply when the file is absent)
  3. Initialize SQLite store and seed the catalog if empty
  4. Wire domain services (settler, registrar, generator, grantor, tutor)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to TOML config file (default: radventure.toml)
  -port    HTTP server port; overrides the config value when set
  -db      SQLite database path; overrides the config value when set
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/radventure.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"github.com/radventure/engine/api"
	"github.com/radventure/engine/challenge"
	"github.com/radventure/engine/config"
	"github.com/radventure/engine/events"
	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/radcoin"
	"github.com/radventure/engine/shop"
	"github.com/radventure/engine/store/sqlite"
	"github.com/radventure/engine/tutor"
)

func main() {
	// Flags
	configPath := flag.String("config", "radventure.toml", "TOML config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if err := seedCatalog(context.Background(), store); err != nil {
		log.Printf("Warning: catalog seeding failed: %v", err)
	}

	// Wire domain services
	ledger := radcoin.NewLedger(store)
	settler := shop.NewSettler(store, store, ledger, store)
	registrar := events.NewRegistrar(store, store)
	grantor := radcoin.NewGrantor(store, ledger)
	auditor := &radcoin.Auditor{Ledger: ledger}

	generator := challenge.NewGenerator(store, store)
	generator.FanOutSize = cfg.Challenge.FanOutBatchSize

	limiter := tutor.NewRateLimiter(cfg.Tutor.RateLimitPerMinute, time.Minute)
	chatClient := tutor.NewChatClient(cfg.Tutor.BaseURL, cfg.Tutor.APIKey)
	tut := tutor.New(chatClient, store, limiter, cfg.Tutor.Model)

	handler := &api.Handler{
		Store:           store,
		Settler:         settler,
		Registrar:       registrar,
		Generator:       generator,
		Grantor:         grantor,
		Auditor:         auditor,
		Tutor:           tut,
		DailyLoginBonus: cfg.Economy.DailyLoginBonus,
	}

	router := api.NewRouter(handler, cfg.Auth.JWTSecret)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second, // tutor calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Server.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedCatalog installs the default shop items on an empty database.
func seedCatalog(ctx context.Context, store *sqlite.Store) error {
	count, err := store.CountItems(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	salePrice := int64(40)
	discount := 20
	items := []shop.Item{
		{
			ID: "elimination-pack-small", Name: "Elimination Pack (5)",
			Description: "Removes one wrong option per use.",
			Category:    shop.CategoryHelpAids, Price: 25,
			Benefits: helpaid.Grant{Elimination: 5}, Active: true,
		},
		{
			ID: "skip-pack-small", Name: "Skip Pack (5)",
			Description: "Skip a question without breaking your streak.",
			Category:    shop.CategoryHelpAids, Price: 30,
			Benefits: helpaid.Grant{Skip: 5}, Active: true,
		},
		{
			ID: "tutor-credits-small", Name: "AI Tutor Credits (3)",
			Description: "Ask the AI tutor about any case.",
			Category:    shop.CategoryHelpAids, Price: 50, SalePrice: &salePrice,
			Benefits: helpaid.Grant{AITutor: 3}, Active: true,
		},
		{
			ID: "starter-bundle", Name: "Starter Bundle",
			Description: "A bit of everything to get going.",
			Category:    shop.CategoryBundle, Price: 80, Discount: &discount,
			Benefits: helpaid.Grant{Elimination: 3, Skip: 3, AITutor: 2}, Active: true,
		},
	}
	for _, item := range items {
		if err := store.SaveItem(ctx, item); err != nil {
			return err
		}
	}
	log.Printf("Seeded %d catalog items", len(items))
	return nil
}
