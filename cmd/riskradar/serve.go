package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/riskradar/internal/adapter/httpadapter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Forecast on an interval and serve the risk API",
	Long: "Runs the forecast loop every FORECAST_INTERVAL, publishes records to Kafka when enabled, " +
		"and serves health, metrics, forecast, route, and profile endpoints on HTTP_ADDR.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, state, closePublisher, err := newForecastPipeline(st, "")
		if err != nil {
			return err
		}
		defer closePublisher()

		srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, state, logger)

		// Start HTTP server.
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
				stop()
			}
		}()

		// Start forecast loop.
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := p.Run(ctx); err != nil {
				logger.Error("forecast loop error", "error", err)
			}
		}()

		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warn("forecast loop did not stop before shutdown timeout")
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
