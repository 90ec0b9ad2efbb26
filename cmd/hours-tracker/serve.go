package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/daemon"
	"github.com/username/hours-tracker/internal/timesheet"
	"github.com/username/hours-tracker/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string
	var sessionTTL time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the date selector over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := newAPIClient()
			if err != nil {
				return err
			}
			cal, err := initializeCalendar(client)
			if err != nil {
				return err
			}

			refresher, err := daemon.NewRefresher(cal, cfg.Calendar.RefreshSchedule, logger)
			if err != nil {
				return err
			}
			if err := refresher.Start(ctx); err != nil {
				return fmt.Errorf("failed to start holiday refresher: %w", err)
			}
			defer refresher.Stop()

			var csrfKey []byte
			if cfg.Server.CSRFKey != "" {
				csrfKey = []byte(cfg.Server.CSRFKey)
			} else {
				logger.Warn("server.csrf_key is empty, CSRF protection disabled")
			}

			app := web.NewApp(web.Options{
				Selector:       cfg.Selector.DatePicker(),
				AllowedOrigins: cfg.Server.AllowedOrigins,
				CSRFKey:        csrfKey,
				SecureCookies:  cfg.Server.SecureCookies,
				Refresher:      refresher,
				Timesheet:      timesheet.NewBuilder(client, cal, cfg.Selector.Locale, logger),
			}, cal, logger)

			srv := &http.Server{
				Addr:         addr,
				Handler:      web.NewRouter(app),
				ReadTimeout:  cfg.Server.GetReadTimeout(),
				WriteTimeout: cfg.Server.GetWriteTimeout(),
			}

			go pruneSessions(ctx, app, sessionTTL)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
				logger.Info("Received signal, shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", 2*time.Hour, "Drop selector sessions idle for this long")

	return cmd
}

func pruneSessions(ctx context.Context, app *web.App, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.PruneIdle(ttl)
		}
	}
}
