// Command api runs the grievance portal HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"issuedesk.org/internal/auth"
	"issuedesk.org/internal/complaint"
	"issuedesk.org/internal/config"
	"issuedesk.org/internal/httpapi"
	"issuedesk.org/internal/obs"
	"issuedesk.org/internal/profile"
	"issuedesk.org/internal/store/memory"
	"issuedesk.org/internal/store/pg"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := obs.Logger()
	cfg := config.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		authStore      auth.Store
		profileStore   profile.Store
		complaintStore complaint.Store
		ready          httpapi.ReadyProbe
		closeStore     func() error
	)
	if cfg.DatabaseURL != "" {
		pgStore, err := pg.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Printf(`{"level":"fatal","msg":"open database","error":%q}`, err.Error())
			os.Exit(1)
		}
		authStore = auth.NewPGStore(pgStore.DB())
		profileStore = pgStore
		complaintStore = pgStore
		ready = func(ctx context.Context) error { return pgStore.DB().PingContext(ctx) }
		closeStore = pgStore.Close
	} else {
		logger.Println(`{"level":"warn","msg":"no database configured, using in-memory store"}`)
		mem := memory.New()
		authStore = mem
		profileStore = mem
		complaintStore = mem
	}
	if closeStore != nil {
		defer func() { _ = closeStore() }()
	}

	authSvc, err := auth.NewService(authStore, cfg.TokenSecret,
		auth.WithIssuer(cfg.TokenIssuer),
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		logger.Printf(`{"level":"fatal","msg":"init auth service","error":%q}`, err.Error())
		os.Exit(1)
	}
	resolver := auth.NewResolver(authStore)

	profileSvc, err := profile.NewService(profileStore)
	if err != nil {
		logger.Printf(`{"level":"fatal","msg":"init profile service","error":%q}`, err.Error())
		os.Exit(1)
	}
	complaintSvc, err := complaint.NewService(complaintStore, resolver)
	if err != nil {
		logger.Printf(`{"level":"fatal","msg":"init complaint service","error":%q}`, err.Error())
		os.Exit(1)
	}

	api, err := httpapi.New(httpapi.Options{
		Auth:          authSvc,
		Resolver:      resolver,
		Profiles:      profileSvc,
		Complaints:    complaintSvc,
		Ready:         ready,
		Version:       version,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	})
	if err != nil {
		logger.Printf(`{"level":"fatal","msg":"init http api","error":%q}`, err.Error())
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf(`{"level":"info","msg":"http server listening","addr":%q,"version":%q}`, cfg.HTTPAddr, version)
		errCh <- srv.ListenAndServe()
	}()
	obs.SetReady(true)

	select {
	case <-ctx.Done():
		logger.Println(`{"level":"info","msg":"shutdown signal received"}`)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf(`{"level":"fatal","msg":"http server failed","error":%q}`, err.Error())
			os.Exit(1)
		}
	}

	obs.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf(`{"level":"error","msg":"graceful shutdown failed","error":%q}`, err.Error())
	}
}
