package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/kidship/messaging/internal/auth"
	"github.com/kidship/messaging/internal/chat"
	"github.com/kidship/messaging/internal/config"
	"github.com/kidship/messaging/internal/handlers"
	"github.com/kidship/messaging/internal/live"
	"github.com/kidship/messaging/internal/messaging"
	"github.com/kidship/messaging/internal/middleware"
	"github.com/kidship/messaging/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("starting messaging server")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize database
	pg, err := store.OpenPostgres(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to init database", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	slog.Info("connected to PostgreSQL")

	if err := pg.Migrate(); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize the live broker; Redis fans events out across instances,
	// the in-process broker serves single-instance deployments.
	var broker live.Broker
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = live.InitRedis(cfg.Redis.URL)
		if err != nil {
			slog.Error("failed to init Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		broker = live.NewRedisBroker(redisClient)
		slog.Info("connected to Redis")
	} else {
		broker = live.NewMemoryBroker()
		slog.Info("using in-process live broker")
	}

	svc := messaging.NewService(pg, broker)

	hub := chat.NewHub(svc, redisClient)
	go hub.Run()

	// Set up router
	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.CORS(cfg.CORS.Origin))
	router.Use(middleware.RateLimit(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst))

	// Public routes
	router.HandleFunc("/health", handlers.Health).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/auth/register", auth.RegisterHandler(pg, cfg.Auth.JWTSecret)).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", auth.LoginHandler(pg, cfg.Auth.JWTSecret)).Methods("POST", "OPTIONS")

	// WebSocket
	router.HandleFunc("/ws", chat.ServeWS(hub, cfg.Auth.JWTSecret)).Methods("GET")

	// Protected routes
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(auth.JWTMiddleware(cfg.Auth.JWTSecret))

	protected.HandleFunc("/auth/me", auth.MeHandler(pg)).Methods("GET")
	protected.HandleFunc("/conversations", handlers.ListConversations(svc)).Methods("GET")
	protected.HandleFunc("/conversations", handlers.StartConversation(svc)).Methods("POST")
	protected.HandleFunc("/rooms/{id}/messages", handlers.GetMessages(svc)).Methods("GET")
	protected.HandleFunc("/rooms/{id}/messages", handlers.SendMessage(svc)).Methods("POST")
	protected.HandleFunc("/users/search", handlers.SearchUsers(pg)).Methods("GET")
	protected.HandleFunc("/users/online", handlers.OnlineUsers(hub)).Methods("GET")
	protected.HandleFunc("/users/me", handlers.UpdateProfile(pg, svc)).Methods("PUT")

	// HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
