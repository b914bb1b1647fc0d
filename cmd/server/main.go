package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-social-server/auth"
	"github.com/jrsteele09/go-social-server/auth/authflowrepo"
	"github.com/jrsteele09/go-social-server/auth/providers"
	"github.com/jrsteele09/go-social-server/internal/config"
	"github.com/jrsteele09/go-social-server/relay"
	"github.com/jrsteele09/go-social-server/server"
	"github.com/jrsteele09/go-social-server/token"
	"github.com/jrsteele09/go-social-server/users"
	"github.com/jrsteele09/go-social-server/users/sqlitestore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const cleanupInterval = time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	configureLogging(c)
	displayAppname(c.GetAppName())

	if c.UsesInsecureSecret() {
		log.Warn().Msg("JWT_ACCESS_SECRET is the development default; only acceptable in DEV")
	}

	if dir := dbDir(c.GetDBPath()); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create data directory")
		}
	}
	store, err := sqlitestore.Open(c.GetDBPath())
	if err != nil {
		return errors.Wrap(err, "open user store")
	}
	defer store.Close()

	tokens := token.New(store, token.NewHS256Signer(c.GetAccessTokenSecret()),
		token.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
		token.WithRefreshTokenLength(c.GetRefreshTokenLength()),
		token.WithIssuer(c.GetAppName()),
	)

	registry := providers.FromConfig(c)
	if len(registry.Names()) == 0 {
		log.Warn().Msg("no OAuth providers configured; social login is disabled")
	} else {
		log.Info().Strs("providers", registry.Names()).Msg("OAuth providers configured")
	}

	authService, err := auth.NewAuthorizationService(
		auth.Repos{
			Users:     store,
			AuthFlows: authflowrepo.NewInMemoryRepo(c.GetOAuthStateTimeout(), nil),
		},
		tokens,
		registry,
		auth.WithDefaultProfileImage(c.GetDefaultProfileImageURL()),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := relay.NewHub()
	go hub.Run(ctx)
	go cleanupLoop(ctx, authService)

	handler, err := server.New(c, server.Services{
		Auth:     authService,
		Profiles: users.NewProfileService(store, c.GetDefaultProfileImageURL()),
		Hub:      hub,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	cancel()
	return shutdown(httpServer)
}

func configureLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == config.DevEnv {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func cleanupLoop(ctx context.Context, authService *auth.AuthorizationService) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			authService.CleanupExpired()
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func dbDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
