package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cerbero.org/internal/auth"
	"cerbero.org/internal/config"
	"cerbero.org/internal/httpapi"
	"cerbero.org/internal/migrate"
	"cerbero.org/internal/obs"
	"cerbero.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret,
		auth.WithIssuer(cfg.JWTIssuer),
		auth.WithAudience(cfg.JWTAudience),
		auth.WithTTL(cfg.TokenTTL),
	)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	var (
		tenantStore auth.TenantStore
		userStore   auth.UserStore
		ready       httpapi.ReadyProbe
		pgStore     *pg.Store
	)
	if cfg.PGDSN != "" {
		pgStore, err = pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()

		// Schema and role catalog are brought up to date on every boot.
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		runner := migrate.NewRunner(pgStore.DB(), cfg.MigrationsDir, cfg.SeedsDir)
		applied, err := runner.Up(ctx)
		if err != nil {
			cancel()
			log.Fatalf("migrate up: %v", err)
		}
		for _, name := range applied {
			log.Printf("applied migration %s", name)
		}
		seeded, err := runner.Seed(ctx)
		cancel()
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		for _, name := range seeded {
			log.Printf("applied seed %s", name)
		}

		tenantStore = pgStore.Tenants()
		userStore = pgStore.Users()
		ready = pgStore.Ping
	} else {
		log.Print("CERBERO_PG_DSN not set, using in-memory store")
		mem := auth.NewMemory()
		tenantStore = mem.Tenants()
		userStore = mem.Users()
	}

	authSvc, err := auth.NewService(tenantStore, userStore, issuer)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	tenantSvc, err := auth.NewTenantService(tenantStore)
	if err != nil {
		log.Fatalf("tenant service: %v", err)
	}
	userSvc, err := auth.NewUserService(userStore)
	if err != nil {
		log.Fatalf("user service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Auth:          authSvc,
		Tenants:       tenantSvc,
		Users:         userSvc,
		Ready:         ready,
		Version:       version,
		CORSOrigins:   cfg.CORSOrigins,
		RateBurst:     cfg.RateBurst,
		RatePerSecond: cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting cerbero-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
