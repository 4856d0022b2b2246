package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"listing-admin-api/internal/cache"
	"listing-admin-api/internal/config"
	"listing-admin-api/internal/events"
	"listing-admin-api/internal/handler"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/middleware"
	"listing-admin-api/internal/repository"
	"listing-admin-api/internal/router"
	"listing-admin-api/internal/service"
	"listing-admin-api/internal/storage"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	defer log.Sync()
	log.Info("starting", "app", cfg.App.Name, "version", cfg.App.Version, "env", cfg.App.Environment)

	// Initialize catalog repository based on config
	catalogRepo, err := openCatalog(cfg, log)
	if err != nil {
		log.Error("failed to initialize catalog", "type", cfg.CatalogDB.Type, "error", err)
		os.Exit(1)
	}
	defer catalogRepo.Close()

	// Initialize MySQL connection for operator accounts (optional)
	var adminRepo repository.AdminRepository
	if cfg.Database.Enabled() {
		mysqlDB, err := openMySQL(cfg.Database.DSN())
		if err != nil {
			log.Warn("mysql unavailable, account login disabled", "error", err)
		} else {
			defer mysqlDB.Close()
			adminRepo = repository.NewMySQLAdminRepository(mysqlDB)
			log.Info("mysql admin repository initialized")
		}
	}

	// Initialize cache (listing reads and session tokens)
	listingCache, err := openCache(cfg)
	if err != nil {
		log.Warn("redis unavailable, falling back to memory cache", "error", err)
		listingCache = cache.NewMemoryCache(time.Minute)
	}
	defer listingCache.Close()

	// Initialize image storage
	var images storage.ImageStore = storage.NewInlineStore()
	if cfg.Storage.Type == "minio" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		}, log)
		cancel()
		if err != nil {
			log.Error("failed to initialize object storage", "error", err)
			os.Exit(1)
		}
		images = store
	}

	// Initialize event publisher
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.NatsURL != "" {
		natsPublisher, err := events.NewNatsPublisher(cfg.Events.NatsURL, cfg.Events.SubjectPrefix, log)
		if err != nil {
			log.Warn("nats unavailable, events disabled", "error", err)
		} else {
			publisher = natsPublisher
			log.Info("nats publisher initialized", "url", cfg.Events.NatsURL)
		}
	}
	defer publisher.Close()

	// Initialize services
	catalogService := service.NewCatalogService(catalogRepo, images, listingCache, publisher, cfg.Cache.TTL, log)
	editorService := service.NewEditorService(catalogService, catalogService, service.EditorConfig{
		SessionTTL:   cfg.Editor.SessionTTL,
		ReapInterval: cfg.Editor.ReapInterval,
		LoadTimeout:  cfg.Editor.LoadTimeout,
	}, log)
	editorService.Start()
	tokenService := service.NewTokenService(listingCache, log)

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version, handler.ReadyCheck{
		Name: "catalog",
		Check: func(ctx context.Context) error {
			_, err := catalogService.Stats(ctx)
			return err
		},
	})
	listingHandler := handler.NewListingHandler(catalogService, log)
	editorHandler := handler.NewEditorHandler(editorService, cfg.Server.MaxUploadBytes, log)
	adminHandler := handler.NewAdminHandler(handler.AdminConfig{
		Catalog:   catalogService,
		Editor:    editorService,
		DBType:    cfg.CatalogDB.Type,
		CacheType: cfg.Cache.Type,
		LoginKey:  cfg.App.LoginKey,
	}, log)
	authHandler := handler.NewAuthHandler(tokenService, adminRepo, log)

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		TokenService: tokenService,
		APIKeys:      cfg.App.APIKeys,
		LoginKey:     cfg.App.LoginKey,
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		ListingHandler: listingHandler,
		EditorHandler:  editorHandler,
		AdminHandler:   adminHandler,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Logger:         log,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", "addr", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "error", err)
	}

	// Stop the reaper once no request can reach the editor
	editorService.Stop()

	log.Info("server stopped")
}

func openCatalog(cfg *config.Config, log logger.Logger) (repository.ListingRepository, error) {
	switch cfg.CatalogDB.Type {
	case "mongodb", "mongo":
		return repository.NewMongoDBListingRepository(
			cfg.CatalogDB.MongoURI,
			cfg.CatalogDB.MongoDatabase,
			cfg.CatalogDB.MongoCollection,
			log,
		)
	case "postgres", "postgresql":
		return repository.NewPostgresListingRepository(cfg.CatalogDB.PostgresDSN(), log)
	default: // sqlite
		if err := os.MkdirAll(filepath.Dir(cfg.CatalogDB.Path), 0o755); err != nil {
			return nil, err
		}
		return repository.NewSQLiteListingRepository(cfg.CatalogDB.SQLiteDSN(), log)
	}
}

func openMySQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Type != "redis" {
		return cache.NewMemoryCache(time.Minute), nil
	}
	return cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
}
