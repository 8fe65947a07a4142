package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecgard/huddle/internal/api"
	"github.com/alecgard/huddle/internal/config"
	"github.com/alecgard/huddle/internal/contact"
	"github.com/alecgard/huddle/internal/database"
	"github.com/alecgard/huddle/internal/events"
	"github.com/alecgard/huddle/internal/message"
	"github.com/alecgard/huddle/internal/metrics"
	"github.com/alecgard/huddle/internal/project"
	"github.com/alecgard/huddle/internal/ratelimit"
	"github.com/alecgard/huddle/internal/user"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Huddle API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	closeLog := setupLogging(cfg.Log)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("connected to database")

	m := metrics.New()
	m.RegisterDBPoolCollector(database.PoolStats(pool))

	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		np, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
		defer np.Close()
		publisher = np
		slog.Info("publishing activity events", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
	}

	svc := project.NewService(project.NewTxRunner(pool), publisher, cfg.Server.PublicURL)
	svc.SetMetrics(m)

	userStore := user.NewStore(pool, cfg.Session.Lifetime)
	go user.RunSessionJanitor(ctx, userStore, cfg.Session.CleanInterval, m.AddSessionsPurged)

	var authLimiter *ratelimit.Limiter
	if cfg.Throttle.Burst > 0 {
		authLimiter = ratelimit.New(cfg.Throttle.Burst, cfg.Throttle.Window)
		go authLimiter.RunSweeper(ctx, cfg.Throttle.Window)
	}

	router := api.NewRouter(api.RouterDeps{
		Projects:       svc,
		Users:          userStore,
		Sessions:       user.NewAuthAdapter(userStore),
		Contacts:       contact.NewStore(pool),
		Messages:       message.NewStore(pool),
		Metrics:        m,
		DB:             pool,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthLimiter:    authLimiter,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
		slog.Info("shutting down")
	case err := <-errCh:
		slog.Error("server error", "error", err)
		return err
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
