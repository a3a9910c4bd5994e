package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"virtualexpo/internal/adapters/auth"
	httpdelivery "virtualexpo/internal/delivery/http"
	"virtualexpo/internal/delivery/http/controllers"
	"virtualexpo/internal/delivery/http/middleware"
	"virtualexpo/internal/scheduler"
)

var (
	serverPort      string
	gracefulTimeout time.Duration
	disableTicker   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the lifecycle ticker",
	Long: `Starts the HTTP API with the admin override endpoints and runs the lifecycle
ticker in the same process. Shuts down gracefully on SIGINT or SIGTERM: the
server drains in-flight requests and the ticker finishes its current tick.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverPort, "port", "", "HTTP port (overrides PORT)")
	serveCmd.Flags().DurationVar(&gracefulTimeout, "graceful-timeout", 15*time.Second, "time allowed for in-flight requests on shutdown")
	serveCmd.Flags().BoolVar(&disableTicker, "no-ticker", false, "serve the API without running the lifecycle ticker")
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := runMigrations(cfg, logger, false); err != nil {
			return err
		}
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; every authenticated request will be rejected")
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close resources", "err", err)
		}
	}()

	router := httpdelivery.NewRouter(
		controllers.NewLifecycleController(logger, a.events),
		controllers.NewSessionController(logger, a.sessions),
		auth.NewJWTVerifier(cfg.JWTSecret),
		logger,
	)
	handler := middleware.CORS(cfg.CORSAllowedOrigins,
		middleware.LoggingMiddleware(logger,
			middleware.Timeout(cfg.RequestTimeout, router)))

	port := cfg.Port
	if serverPort != "" {
		port = serverPort
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ticker := scheduler.NewTicker(a.events, a.sessions, cfg.TickInterval, logger)
	if !disableTicker {
		if err := ticker.Start(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
		defer cancel()
		return errors.Join(server.Shutdown(shutdownCtx), ticker.Stop())
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
