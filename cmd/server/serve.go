package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"time-tracking-api/internal/auth"
	"time-tracking-api/internal/cache"
	"time-tracking-api/internal/config"
	"time-tracking-api/internal/database"
	"time-tracking-api/internal/handlers"
	"time-tracking-api/internal/narrative"
	"time-tracking-api/internal/routes"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := database.InitDB(cfg.Database.Path, cfg.Database.LogLevel); err != nil {
		return err
	}
	auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL.Duration)

	gen, err := buildGenerator(cfg.Narrative)
	if err != nil {
		return err
	}
	handlers.SetNarrativeGenerator(gen)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      routes.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on %s (database %s, narrative %s)", srv.Addr, cfg.Database.Path, cfg.Narrative.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildGenerator returns the narrative generator selected by the config.
func buildGenerator(cfg config.NarrativeConfig) (narrative.Generator, error) {
	switch cfg.Provider {
	case "", "template":
		return narrative.Template{}, nil
	case "http":
		g, err := narrative.NewHTTP(narrative.HTTPConfig{
			Endpoint:  cfg.Endpoint,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout.Duration,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		})
		if err != nil {
			return nil, err
		}
		if cfg.CacheTTL.Duration <= 0 {
			return g, nil
		}
		return narrative.NewCached(g, cache.New[string, narrative.Result](256), cfg.CacheTTL.Duration), nil
	}
	return nil, fmt.Errorf("unknown narrative provider %q", cfg.Provider)
}
