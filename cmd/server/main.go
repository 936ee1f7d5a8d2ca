package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/wealthflow/internal/advice"
	"github.com/dvloznov/wealthflow/internal/api/handlers"
	"github.com/dvloznov/wealthflow/internal/api/middleware"
	"github.com/dvloznov/wealthflow/internal/auth"
	"github.com/dvloznov/wealthflow/internal/backup"
	"github.com/dvloznov/wealthflow/internal/demo"
	"github.com/dvloznov/wealthflow/internal/logger"
	"github.com/dvloznov/wealthflow/internal/storage"
	bqstore "github.com/dvloznov/wealthflow/internal/storage/bigquery"
	"github.com/dvloznov/wealthflow/internal/storage/inmemory"
)

func main() {
	// Parse command-line flags
	var (
		port          = flag.String("port", "8080", "HTTP server port")
		backend       = flag.String("backend", "inmemory", "Storage backend: inmemory or bigquery")
		bqProject     = flag.String("bq-project", os.Getenv("BQ_PROJECT"), "BigQuery project id (or set BQ_PROJECT env)")
		bqDataset     = flag.String("bq-dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset id (or set BQ_DATASET env)")
		pollInterval  = flag.Duration("poll-interval", bqstore.DefaultPollInterval, "BigQuery subscription poll interval")
		bucket        = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name for backups (or set GCS_BUCKET env)")
		quoteInterval = flag.Duration("quote-interval", 0, "Simulated quote refresh interval (0 disables the background loop)")
		geminiModel   = flag.String("gemini-model", advice.DefaultModelName, "Gemini model for advice and categorization")
		seedDemo      = flag.Bool("demo", false, "Seed the demo user and data on startup")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	ctx := context.Background()

	// Initialize the storage backend
	var db storage.Store
	switch *backend {
	case "inmemory":
		db = inmemory.NewStore()
	case "bigquery":
		if *bqProject == "" || *bqDataset == "" {
			log.Fatal().Msg("BigQuery backend requires -bq-project and -bq-dataset")
		}
		bq, err := bqstore.NewStore(ctx, *bqProject, *bqDataset, *pollInterval, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bq.Close()
		db = bq
	default:
		log.Fatal().Str("backend", *backend).Msg("Unknown storage backend")
	}

	authSvc := auth.NewInMemoryService()

	if *seedDemo {
		user, err := demo.Seed(ctx, authSvc, db)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo data")
		}
		log.Info().Str("email", demo.Email).Str("user_id", user.ID).Msg("Demo user seeded")
	}

	// The advisor degrades to a canned response when no API key is present.
	var gen advice.TextGenerator
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		gen = advice.NewGeminiGenerator(*geminiModel)
	} else {
		log.Warn().Msg("No Gemini API key configured - AI advice will be disabled")
	}
	advisor := advice.New(gen, log)

	var exporter *backup.Exporter
	if *bucket != "" {
		exporter = backup.NewExporter(*bucket)
	} else {
		log.Warn().Msg("No GCS bucket configured - backups will be disabled")
	}

	// Initialize sessions and handlers
	sessions := handlers.NewSessionManager(authSvc, db, *quoteInterval, log)

	authHandler := handlers.NewAuthHandler(sessions, log)
	accountsHandler := handlers.NewAccountsHandler(sessions, log)
	transactionsHandler := handlers.NewTransactionsHandler(sessions, log)
	holdingsHandler := handlers.NewHoldingsHandler(sessions, log)
	dashboardHandler := handlers.NewDashboardHandler(sessions, log)
	adviceHandler := handlers.NewAdviceHandler(sessions, advisor, log)
	backupHandler := handlers.NewBackupHandler(sessions, exporter, log)
	streamHandler := handlers.NewStreamHandler(sessions, log)

	// Create router
	mux := http.NewServeMux()

	// Auth endpoints
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Register(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Login(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Logout(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.List(w, r)
		case http.MethodPost:
			accountsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Account ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			accountsHandler.Update(w, r, id)
		case http.MethodDelete:
			accountsHandler.Delete(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Record(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		if r.Method == http.MethodDelete {
			transactionsHandler.Delete(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reconcile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.Reconcile(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Holdings endpoints
	mux.HandleFunc("/api/holdings", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			holdingsHandler.List(w, r)
		case http.MethodPost:
			holdingsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/holdings/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			holdingsHandler.Refresh(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/holdings/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/holdings/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Holding ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			holdingsHandler.Update(w, r, id)
		case http.MethodDelete:
			holdingsHandler.Delete(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Dashboard and category endpoints
	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Categories(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Advice endpoints
	mux.HandleFunc("/api/advice", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			adviceHandler.Advice(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/advice/categorize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			adviceHandler.Categorize(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Backup endpoint
	mux.HandleFunc("/api/backup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			backupHandler.Export(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Live snapshot stream
	mux.HandleFunc("/api/stream", streamHandler.Serve)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(sessions, "/api/auth/register", "/api/auth/login", "/health")(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("backend", *backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Detach every live session so subscriptions are cancelled cleanly
	sessions.Close()

	log.Info().Msg("Server exited")
}
