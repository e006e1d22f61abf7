package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"auth-failover/internal/accounts"
	"auth-failover/internal/api"
	"auth-failover/internal/database"
	"auth-failover/internal/database/repositories"
	"auth-failover/internal/token"
	"auth-failover/pkg/config"
	"auth-failover/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "configs/server.yaml", "path to the server configuration file")
	flag.Parse()

	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.NewLogger("error", "").Fatal("Failed to load config: %v", err)
	}

	log := logger.New(cfg.Logging).WithComponent("server")
	log.WithField("config", cfg.SanitizeForLogging()).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, repo, events, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open account backend: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	store := accounts.NewStore(repo,
		accounts.WithAdminUsername(cfg.Admin.Username),
		accounts.WithMinPasswordLength(cfg.Security.PasswordMinLength),
	)
	if cfg.Admin.Password == "" {
		log.Warning("ADMIN_PASSWORD not set; skipping admin bootstrap")
	} else {
		created, err := store.Bootstrap(ctx, cfg.Admin.Password)
		if err != nil {
			log.Fatal("Failed to bootstrap admin account: %v", err)
		}
		if created {
			log.Info("Provisioned admin account", "username", cfg.Admin.Username)
		}
	}

	issuer, err := token.NewIssuer(cfg.Security.JWTSecret)
	if err != nil {
		log.Fatal("Failed to create token issuer: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies: %v", err)
	}

	services := api.NewServices(db, store, issuer, events, log, cfg)
	if err := api.SetupRoutes(router, services); err != nil {
		log.Fatal("Failed to set up routes: %v", err)
	}

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting auth service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down auth service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed: %v", err)
		os.Exit(1)
	}
	log.Info("Auth service stopped")
}

// openBackend returns the account repository selected by the database
// section. The memory backend has no database and no event store.
func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*sql.DB, accounts.Repository, api.EventStore, error) {
	if cfg.Database.Type == "memory" {
		log.Warning("Accounts are kept in memory and will not survive a restart")
		return nil, accounts.NewMemoryRepository(), nil, nil
	}

	db, dialect, err := database.NewConnection(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := database.RunMigrations(ctx, db, dialect, log.WithComponent("migrations")); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	log.Info("Using %s account backend", cfg.Database.Type)
	return db, repositories.NewAccountRepository(db, dialect), repositories.NewAuthEventRepository(db, dialect), nil
}
