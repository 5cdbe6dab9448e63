package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kinarow/egtb/internal/httpapi"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve probes over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manifest(false)
			if err != nil {
				return err
			}
			handler, err := httpapi.NewRouter(a.logger, a.tablebase(), m)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", srv.Addr).Msg("api listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}
			a.logger.Info().Msg("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn().Err(err).Msg("http server shutdown error")
			}
			a.logger.Info().Msg("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
