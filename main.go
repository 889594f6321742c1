package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"

	"habitLoopAPI/handlers"
	"habitLoopAPI/internal/config"
	"habitLoopAPI/internal/logger"
	"habitLoopAPI/internal/notification"
	"habitLoopAPI/internal/store"
	"habitLoopAPI/internal/store/postgres"
	"habitLoopAPI/internal/store/sqlite"
	"habitLoopAPI/middleware"
	"habitLoopAPI/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	logger.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		slog.Info("closing database")
		db.Close()
	}()

	var pushProvider services.PushNotificationProvider
	fcm, err := notification.NewFCMProvider(ctx, cfg.FCM)
	if err != nil {
		slog.Warn("push notifications disabled", "error", err)
	} else {
		pushProvider = fcm
		slog.Info("FCM push provider initialized")
	}
	dispatcher := services.NewNotificationDispatcher(pushProvider)
	defer dispatcher.Stop()

	notificationService := services.NewNotificationService(db, dispatcher)
	svcs := handlers.Services{
		Users:         services.NewUserService(db),
		Habits:        services.NewHabitService(db),
		Checkins:      services.NewCheckinService(db, notificationService),
		Groups:        services.NewGroupService(db),
		Notifications: notificationService,
	}

	middleware.InitPrometheus(services.Collectors()...)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go rateLimiter.Cleanup(ctx)

	r := handlers.NewRouter(handlers.RouterConfig{
		DB:            db,
		Services:      svcs,
		Verifier:      tokenVerifier(cfg.Auth),
		RateLimiter:   rateLimiter,
		WebhookSecret: cfg.WebhookSecret,
		Metrics:       cfg.Metrics,
	})
	r.PathPrefix("/debug/pprof/").Handler(middleware.BasicAuthMiddleware(cfg.Metrics.User, cfg.Metrics.Password)(http.DefaultServeMux))

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      corsHandler(gorillaHandlers.CombinedLoggingHandler(logger.AccessLog(cfg.Log), r)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server shutdown complete")
}

// openStore picks the backend from the scheme of DATABASE_URL.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if path, ok := cfg.SQLitePath(); ok {
		slog.Info("using sqlite database", "path", path)
		return sqlite.New(connectCtx, path)
	}

	s, err := postgres.New(connectCtx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxConns: int32(cfg.DB.MaxConns),
		MinConns: int32(cfg.DB.MinConns),
	})
	if err != nil {
		return nil, err
	}
	slog.Info("connected to postgres")
	return s, nil
}

// tokenVerifier prefers Clerk and falls back to the HS256 development secret.
func tokenVerifier(cfg config.AuthConfig) middleware.TokenVerifier {
	if cfg.ClerkSecretKey != "" {
		clerk.SetKey(cfg.ClerkSecretKey)
		slog.Info("clerk initialized")
		return middleware.ClerkVerifier{}
	}

	slog.Warn("CLERK_SECRET_KEY not set, accepting HS256 development tokens")
	return middleware.NewHS256Verifier(cfg.DevSecret)
}
