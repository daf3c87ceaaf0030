package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/api"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with a background worker pool for queued jobs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := servicesFrom(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), svc)
		},
	}
}

func serve(ctx context.Context, svc *services) error {
	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()

	p := newPool(svc)
	p.start(workerCtx)

	apiServer := api.NewServer(svc.acquirer, p.store, p.dispatch, svc.jobIDs, p.clock, svc.cfg, svc.logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", svc.cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		svc.logger.Info("http server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		svc.logger.Info("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		svc.logger.Error("http shutdown failed", zap.Error(err))
	}

	drained := make(chan struct{})
	go func() {
		p.drain()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		svc.logger.Warn("worker drain timed out, canceling in-flight jobs")
		cancelWorkers()
		<-drained
	}
	return serveErr
}
