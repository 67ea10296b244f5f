package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	tbdhttp "github.com/Strob0t/tbd/internal/adapter/http"
	"github.com/Strob0t/tbd/internal/adapter/ristretto"
	"github.com/Strob0t/tbd/internal/adapter/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the live log stream",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		}),
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	hub := ws.NewHub(originHost(cfg.Server.CORSOrigin))

	svc, err := a.openService(ctx, hub)
	if err != nil {
		return err
	}

	c, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	a.onClose(func(context.Context) { c.Close() })

	handlers := &tbdhttp.Handlers{
		TaskLog:  svc,
		Cache:    c,
		CacheTTL: cfg.Cache.TTL,
		Queue:    a.queue,
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           tbdhttp.NewRouter(cfg, handlers, hub),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr, "backend", cfg.Storage.Backend, "location", cfg.Storage.Location)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// originHost turns a configured origin such as "http://localhost:3000" into
// the host pattern the websocket upgrader matches against.
func originHost(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return u.Host
	}
	return origin
}
