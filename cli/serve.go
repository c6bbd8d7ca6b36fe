package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	config "github.com/phillip/pawshome-go/config"
	database "github.com/phillip/pawshome-go/database"
	idempotency "github.com/phillip/pawshome-go/idempotency"
	identity "github.com/phillip/pawshome-go/identity"
	observability "github.com/phillip/pawshome-go/observability"
	routes "github.com/phillip/pawshome-go/routes"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(cfg.GinMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg.Logger.Info("server listening", "port", cfg.Port, "auth_provider", cfg.AuthProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		purgeLoop(gctx, cfg)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cfg.Logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	cfg.Logger.Info("server stopped")
	return nil
}

// bootstrap fills in the runtime handles on cfg. The returned cleanup
// closes them in reverse order.
func bootstrap(ctx context.Context, cfg *config.Config) (func(), error) {
	cfg.Logger = observability.NewLogger(observability.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.MetricsEnabled {
		cfg.Metrics = observability.NewMetrics()
	}

	verifier, err := identity.NewVerifier(cfg.VerifierOptions())
	if err != nil {
		return nil, err
	}
	cfg.Verifier = verifier

	store, err := idempotency.Open(cfg.IdempotencyPath)
	if err != nil {
		return nil, fmt.Errorf("open idempotency store: %w", err)
	}
	cfg.Idempotency = store

	connectCtx, cancel := context.WithTimeout(ctx, 3*cfg.RequestTimeout)
	defer cancel()
	client, err := database.Connect(connectCtx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	cfg.MongoClient = client
	cfg.Logger.Info("connected to mongo", "db", cfg.DBName)

	return func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := database.Disconnect(disconnectCtx, client); err != nil {
			cfg.Logger.Error("mongo disconnect failed", "error", err)
		}
		if err := store.Close(); err != nil {
			cfg.Logger.Error("idempotency store close failed", "error", err)
		}
	}, nil
}

func purgeInterval(ttl time.Duration) time.Duration {
	interval := ttl / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func purgeLoop(ctx context.Context, cfg *config.Config) {
	ticker := time.NewTicker(purgeInterval(cfg.IdempotencyTTL))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			purgeExpired(cfg, now)
		}
	}
}

func purgeExpired(cfg *config.Config, now time.Time) int {
	removed, err := cfg.Idempotency.Purge(now.Add(-cfg.IdempotencyTTL))
	if err != nil {
		cfg.Logger.Error("idempotency purge failed", "error", err)
		return 0
	}
	if removed > 0 {
		cfg.Logger.Debug("idempotency keys purged", "removed", removed)
	}
	return removed
}
