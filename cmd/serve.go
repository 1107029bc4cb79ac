package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/insights-api/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the insights HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		handler := server.New(env.Service, env.Limiter, server.Options{
			APISecret:        cfg.Auth.APISecret,
			AnalyzePerMinute: cfg.RateLimit.AnalyzePerMinute,
			ChatPerMinute:    cfg.RateLimit.ChatPerMinute,
			CORSOrigins:      cfg.Server.CORSOrigins,
		}).Handler()

		port := resolvePort(servePort, cfg.Server.Port)
		return startServer(ctx, handler, port, time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
	},
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler on port until ctx is cancelled, then drains
// in-flight requests for up to shutdownTimeout.
func startServer(ctx context.Context, handler http.Handler, port int, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- eris.Wrap(err, "server listen")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
