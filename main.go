package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type App struct {
	cfg     Config
	store   *Store
	tokens  *TokenService
	limiter *Limiter
	log     *logrus.Logger
}

func NewApp(cfg Config, store *Store, tokens *TokenService, limiter *Limiter, log *logrus.Logger) *App {
	return &App{
		cfg:     cfg,
		store:   store,
		tokens:  tokens,
		limiter: limiter,
		log:     log,
	}
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", a.Health)

	// Public routes
	mux.HandleFunc("POST /api/auth/signup", a.limiter.Limit(a.Signup))
	mux.HandleFunc("POST /api/auth/login", a.limiter.Limit(a.Login))
	mux.HandleFunc("GET /api/posts", a.ListPosts)

	// Protected routes
	mux.HandleFunc("GET /api/auth/logout", a.requireAuth(a.Logout))
	mux.HandleFunc("POST /api/posts", a.requireAuth(a.CreatePost))
	mux.HandleFunc("GET /api/users/profile", a.requireAuth(a.Profile))
	mux.HandleFunc("GET /api/users/posts", a.requireAuth(a.UserPosts))
	mux.HandleFunc("PUT /api/users/update-bio", a.requireAuth(a.UpdateBio))
	mux.HandleFunc("PUT /api/users/update-profile", a.requireAuth(a.UpdateProfile))

	return requestLogger(a.log)(recoverPanic(a.cors(muxErrors(mux))))
}

func main() {
	godotenv.Load()

	log := newLogger(os.Stdout, logrus.InfoLevel)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}

	store, err := openDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer store.Close()
	log.Infof("connected to %s database", cfg.DBDriver)

	ctx := context.Background()
	if err = initDB(ctx, store); err != nil {
		log.Fatalf("initializing database: %v", err)
	}

	if cfg.SeedDemo {
		seeded, err := seedDB(ctx, store)
		if err != nil {
			log.Fatalf("seeding database: %v", err)
		}
		if seeded {
			log.Info("seeded demo account demo@feedline.local")
		}
	}

	limiter := NewRedisLimiter(cfg, log)
	defer limiter.Close()

	app := NewApp(cfg, store, NewTokenService(cfg.JWTSecret), limiter, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
	}

	go func() {
		log.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serving: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutting down: %v", err)
	}
}
