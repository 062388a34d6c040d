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

	"cloakroom-backend/internal/audit"
	"cloakroom-backend/internal/auth"
	"cloakroom-backend/internal/config"
	"cloakroom-backend/internal/database"
	"cloakroom-backend/internal/db"
	"cloakroom-backend/internal/handlers"
	"cloakroom-backend/internal/health"
	h "cloakroom-backend/internal/http"
	"cloakroom-backend/internal/live"
	"cloakroom-backend/internal/logger"
	"cloakroom-backend/internal/middleware"
	"cloakroom-backend/internal/repositories"
	"cloakroom-backend/internal/services"
	"cloakroom-backend/internal/storage"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	totpSetup := flag.String("totp-setup", "", "print a new TOTP secret for the given admin username and exit")
	flag.Parse()

	if *totpSetup != "" {
		key, err := auth.GenerateTOTPSecret("cloakroom", *totpSetup)
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate totp secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("ADMIN_TOTP_SECRET=%s\n%s\n", key.Secret(), key.URL())
		return
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// newBlobStore picks the photo store. The returned directory is served under
// /uploads/ and is empty for remote stores.
func newBlobStore(ctx context.Context, cfg *config.Config) (storage.Store, string, error) {
	if cfg.Storage.Driver == "r2" {
		s, err := storage.NewR2Store(ctx, cfg)
		return s, "", err
	}
	s, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		return nil, "", err
	}
	return s, s.Dir(), nil
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if err := database.Migrate(cfg.MigrateURL(), log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	blobs, uploadDir, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	fileSink, err := audit.NewFileSink(cfg.Audit.File)
	if err != nil {
		return err
	}
	auditRepo := repositories.NewAuditRepository(pool)
	sinks := audit.MultiSink{fileSink}
	var auditHandler *handlers.AuditHandler
	if cfg.Audit.DBEnabled {
		sinks = append(sinks, audit.NewDBSink(auditRepo))
		auditHandler = handlers.NewAuditHandler(auditRepo)
	}

	hub := live.NewHub(log)
	go hub.Run(ctx)

	store := services.NewPostgresStore(pool)
	jwtManager := auth.NewJWTManager(cfg)

	recordService := services.NewRecordService(store, cfg.Locations, cfg.Return.SameDayOnly, hub, log)
	deletionService := services.NewDeletionService(store, blobs, sinks, cfg.Locations, hub, log)
	eventService := services.NewEventService(store, cfg.Locations, log)
	userService := services.NewUserService(store, deletionService, cfg.Locations, log)
	reportService := services.NewReportService(store, log)
	authService := services.NewAuthService(store.Users(), services.AdminCredentials{
		Username:   cfg.Admin.Username,
		Password:   cfg.Admin.Password,
		TOTPSecret: cfg.Admin.TOTPSecret,
	}, jwtManager, log)

	router := h.NewRouter(h.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Records:     handlers.NewRecordHandler(recordService, blobs, cfg.Server.UploadMaxBytes, log),
		AdminRecord: handlers.NewAdminRecordHandler(deletionService, reportService, cfg.Locations),
		Events:      handlers.NewEventHandler(eventService),
		Users:       handlers.NewUserHandler(userService),
		Audit:       auditHandler,
		Health:      handlers.NewHealthHandler(health.NewHealthChecker(pool, uploadDir)),
		Live:        hub.ServeWS,
	}, middleware.NewAuthMiddleware(jwtManager), uploadDir)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(log)(middleware.RequestLogger(log)(corsMiddleware(router)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.Strings("locations", cfg.Locations),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
