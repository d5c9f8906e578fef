// Command server runs the text analyzer HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quillmark/text-analyzer/internal/api"
	"github.com/quillmark/text-analyzer/internal/auth"
	"github.com/quillmark/text-analyzer/internal/cache"
	"github.com/quillmark/text-analyzer/internal/config"
	"github.com/quillmark/text-analyzer/internal/db"
	"github.com/quillmark/text-analyzer/internal/obs"
	"github.com/quillmark/text-analyzer/internal/ratelimit"
	"github.com/quillmark/text-analyzer/internal/store"
	"github.com/quillmark/text-analyzer/internal/texts"
)

func main() {
	obs.Init()
	log := obs.Pkg("main")

	noRedis, addr := config.ParseFlags()
	cfg := config.MustLoadConfig(noRedis, addr)
	cfg.PrintStartupSummary()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Open(cfg.DatabasePath, cfg.DatabaseKey)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DatabasePath, "err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	var backend cache.Backend
	if cfg.NoRedis {
		backend = cache.NewMemoryBackend()
		log.Info("using in-process cache backend")
	} else {
		redisBackend, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "url", cfg.RedisURL, "err", err)
			os.Exit(1)
		}
		defer redisBackend.Close()
		backend = redisBackend
	}

	svc := texts.NewService(store.New(sqlDB), cache.New(backend, cfg.CacheTTL))

	gate := auth.NewMiddleware(auth.NewTokenVerifier([]byte(cfg.JWTSecret)))
	limiter := ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	defer limiter.Stop()

	// The limiter runs inside the gate: only verified subjects consume
	// rate budget.
	limit := ratelimit.Middleware(limiter, func(r *http.Request) string {
		return auth.SubjectFromContext(r.Context())
	})
	protect := func(next http.Handler) http.Handler {
		return gate.RequireAuth(limit(next))
	}

	mux := http.NewServeMux()
	api.NewHandler(svc).RegisterRoutes(mux, protect)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handler := obs.RequestContextMiddleware(obs.AccessLogMiddleware("api", mux))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}
}
