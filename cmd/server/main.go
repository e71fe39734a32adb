package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/study-grade/internal/authentication"
	"github.com/study-grade/internal/grades"
	httpx "github.com/study-grade/internal/http"
	"github.com/study-grade/internal/keys"
	"github.com/study-grade/internal/migrations"
	"github.com/study-grade/internal/statistics"
	"github.com/study-grade/internal/tokens"
	"github.com/study-grade/internal/users"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("[ERROR] .env: %s", err)
	}

	addr := flag.String("address", ":8080", "http address to listen to")
	dbPath := flag.String("database-path", "study-grade.db", "path to the database")
	key := flag.String("signing-key", "", "key to sign access tokens with, at least 32 bytes")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of issued access tokens")
	statisticsTTL := flag.Duration("statistics-ttl", 5*time.Minute, "how long computed statistics are cached")
	verbose := flag.Bool("verbose", false, "if true, will log debug messages")
	flag.Parse()

	if envAddr := os.Getenv("ADDRESS"); envAddr != "" {
		addr = &envAddr
	}
	if envDBPath := os.Getenv("DATABASE_PATH"); envDBPath != "" {
		dbPath = &envDBPath
	}
	if envKey := os.Getenv("SIGNING_KEY"); envKey != "" {
		key = &envKey
	}

	level := new(slog.LevelVar)
	if *verbose {
		level.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	var signingKey *keys.Key
	if *key == "" {
		generated, err := keys.NewKey()
		if err != nil {
			log.Fatalf("[ERROR] signing-key: %s", err)
		}
		signingKey = generated
		logger.Warn("no signing key configured, issued tokens will not survive a restart")
	} else {
		parsed, err := keys.ParseKey([]byte(*key))
		if err != nil {
			log.Fatalf("[ERROR] signing-key: %s", err)
		}
		signingKey = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLogger(nil))
	if err != nil {
		log.Fatalf("[ERROR] db: %s", err)
	}
	defer db.Close()

	if err := migrations.Run(logger, db); err != nil {
		log.Fatalf("[ERROR] db migrations: %s", err)
	}

	usersStore := users.NewStore(db)
	tokensStore := tokens.NewStore(db)
	gradesStore := grades.NewStore(db)
	issuer := tokens.NewIssuer(signingKey, *tokenTTL)
	authenticationService := authentication.NewService(usersStore, tokensStore, issuer)
	gradesService := grades.NewService(logger, gradesStore)
	statisticsService := statistics.NewService(gradesService, *statisticsTTL)
	gradesService.OnRecordCreated(statisticsService.Invalidate)

	go runGC(ctx, logger, db)

	httpServer := http.Server{
		Handler:           httpx.Handler(logger, authenticationService, gradesService, statisticsService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Wait for shut down in a separate goroutine.
	errCh := make(chan error)
	go func() {
		shutdownCh := make(chan os.Signal, 1)
		signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
		sig := <-shutdownCh

		logger.Info("shutting down", "signal", sig)

		shutdownTimeout := 15 * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errCh <- httpServer.Shutdown(shutdownCtx)
	}()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("[ERROR] tcp: %s", err)
	}
	logger.Info("listening", "address", ln.Addr().String())

	if err := httpServer.Serve(ln); err != http.ErrServerClosed {
		logger.Error("http serve", "error", err)
	}

	if err := <-errCh; err != nil {
		logger.Error("error during shutdown", "error", err)
	}

	logger.Info("application stopped")
}

// runGC reclaims space held by expired token revocations.
func runGC(ctx context.Context, logger *slog.Logger, db *badger.DB) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logger.Warn("value log gc", "error", err)
			}
		}
	}
}
