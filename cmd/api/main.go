package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"readshelf/internal/auth"
	"readshelf/internal/book"
	"readshelf/internal/catalog"
	"readshelf/internal/config"
	"readshelf/internal/external"
	"readshelf/internal/httpx"
	"readshelf/internal/logging"
	"readshelf/internal/platform/googlebooks"
	"readshelf/internal/platform/openlibrary"
	"readshelf/internal/profile"
	"readshelf/internal/recommend"
	"readshelf/internal/user"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	dbPool := mustOpenDB(cfg.Database.DSN)
	defer dbPool.Close()

	qt := cfg.Database.QueryTimeout
	userService := user.NewService(user.NewPostgresRepo(dbPool, qt))
	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, userService)
	bookService := book.NewService(book.NewPostgresRepo(dbPool, qt))
	catalogRepo := catalog.NewPostgresRepo(dbPool, qt)

	searcher := external.NewSearcher(cfg.Providers.Timeout, newProviders(cfg.Providers)...)
	recommendService := recommend.NewService(cfg.Recommend, catalogRepo, searcher)

	h := &handlers{
		auth:      auth.NewHTTPHandler(authService),
		user:      user.NewHTTPHandler(userService),
		profile:   profile.NewHTTPHandler(profile.NewService(userService, catalogRepo)),
		book:      book.NewHTTPHandler(bookService),
		external:  external.NewHTTPHandler(searcher),
		recommend: recommend.NewHTTPHandler(recommendService),
		jwtSecret: cfg.Auth.JWTSecret,
		ready:     dbPool.Ping,
	}

	rateLimiter := httpx.NewRateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	defer rateLimiter.Stop()

	httpServer := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: withMiddleware(h.routes(), middlewareConfig{
			corsOrigins:  cfg.Server.CORSOrigins,
			maxBodyBytes: cfg.Server.MaxBodyBytes,
			rateLimiter:  rateLimiter,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logging.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		logging.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newProviders builds the provider chain in lookup order: Open Library, then Google Books.
func newProviders(pc config.ProvidersConfig) []external.Provider {
	breaker := external.DefaultBreakerSettings()

	ol := external.NewOpenLibrary(openlibrary.NewClient(openlibrary.Options{
		BaseURL:    pc.OpenLibraryURL,
		UserAgent:  pc.UserAgent,
		RPS:        pc.RPS,
		MaxRetries: pc.MaxRetries,
		Timeout:    pc.Timeout,
	}))
	gb := external.NewGoogleBooks(googlebooks.NewClient(googlebooks.Options{
		BaseURL:    pc.GoogleBooksURL,
		APIKey:     pc.GoogleAPIKey,
		UserAgent:  pc.UserAgent,
		RPS:        pc.RPS,
		MaxRetries: pc.MaxRetries,
		Timeout:    pc.Timeout,
	}))
	return []external.Provider{
		external.WithBreaker(ol, breaker),
		external.WithBreaker(gb, breaker),
	}
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logging.Fatal().Err(err).Msg("cannot create db pool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		logging.Fatal().Err(err).Str("dsn", redactDSN(dsn)).Msg("cannot ping database")
	}
	logging.Info().Msg("database connection OK")
	return pool
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
