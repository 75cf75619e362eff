package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"treelof-api/internal/auth"
	"treelof-api/internal/cache"
	"treelof-api/internal/config"
	"treelof-api/internal/database"
	"treelof-api/internal/db"
	"treelof-api/internal/handlers"
	"treelof-api/internal/health"
	h "treelof-api/internal/http"
	"treelof-api/internal/logger"
	"treelof-api/internal/middleware"
	"treelof-api/internal/realtime"
	"treelof-api/internal/references"
	"treelof-api/internal/repositories"
	"treelof-api/internal/services"
	"treelof-api/internal/timeutil"
	"treelof-api/migrations"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	issueToken := flag.String("issue-token", "", "Print a service token for the named backend and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.FileUsed != "" {
		log.Info("config loaded", "file", cfg.FileUsed)
	}

	if err := timeutil.SetLocation(cfg.History.Timezone); err != nil {
		log.Fatal("invalid history timezone", "timezone", cfg.History.Timezone, "error", err)
	}

	jwtManager := auth.NewJWTManager(cfg)

	if *issueToken != "" {
		token, err := jwtManager.GenerateServiceToken(*issueToken)
		if err != nil {
			log.Fatal("failed to issue service token", "service", *issueToken, "error", err)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect to database", "host", cfg.Database.Host, "error", err)
	}
	defer pool.Close()
	log.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

	// Redis is optional, reads fall back to postgres
	if cfg.Redis.Enabled {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Warn("redis unavailable, caching disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			log.Info("redis cache connected", "addr", cfg.Redis.Addr)
			defer cache.Close()
		}
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	migrator := database.NewMigrator(pool, migrations.FS, ".", log)
	if err := migrator.RunMigrations(migrateCtx); err != nil {
		cancel()
		log.Fatal("failed to run migrations", "error", err)
	}
	cancel()

	// Repositories
	plantRepo := repositories.NewPlantRepository(pool)
	profileRepo := repositories.NewProfileRepository(pool)
	revisionRepo := repositories.NewRevisionRepository(pool)
	revisionStore := repositories.NewCachedRevisionStore(revisionRepo, cfg.CacheTTL(), log)
	if cache.Enabled() {
		// moderation writes straight to postgres; the trigger tells us
		go repositories.NewRevisionChangeListener(pool, revisionStore.Invalidate, log).Run(ctx)
	}

	// Entities revisions may target
	registry := references.NewRegistry()
	registry.Register(references.Plants, references.NewPlantResolver(plantRepo))

	// Live feed
	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	revisionService := services.NewRevisionService(revisionStore, registry, profileRepo, log)
	revisionService.SetPublisher(hub)

	// Handlers
	revisionHandler := handlers.NewRevisionHandler(revisionService)
	plantHandler := handlers.NewPlantHandler(plantRepo, log)
	feedHandler := handlers.NewFeedHandler(hub.ServeWS)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool))

	trust := auth.NewTrustChecker(cfg.Trust.AllowedOrigins, jwtManager)
	router := h.NewRouter(revisionHandler, plantHandler, feedHandler, healthHandler, trust)

	var handler http.Handler = middleware.NewCORS(cfg)(router)
	handler = middleware.RequestLogger(log)(handler)
	handler = middleware.PanicRecovery(log)(handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr, "references", registry.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
