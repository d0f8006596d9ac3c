package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tamsal/storefront/internal/adapters/filewatcher"
	"github.com/tamsal/storefront/internal/adapters/metrics"
	"github.com/tamsal/storefront/internal/adapters/sessionstore"
	"github.com/tamsal/storefront/internal/domain/usecases"
	apihttp "github.com/tamsal/storefront/internal/infrastructure/http"
)

func newServeCommand(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), get())
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("watch", false, "reload the catalog file when it changes")
	return cmd
}

func runServe(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := sessionstore.New(a.cfg.Sessions.Max, a.cfg.Language())
	if err != nil {
		return err
	}
	if err := metrics.RegisterSessionGauge("tamsal", nil, sessions.Len); err != nil {
		return err
	}
	if a.cfg.GenAI.APIKey == "" {
		a.log.Warn("no API key configured; estimation and chat will fall back")
	}

	srv := apihttp.NewServer(apihttp.Deps{
		Catalog:   a.store,
		Estimator: a.estimator,
		Chat:      a.chat,
		Locator:   a.locator,
		Sessions:  sessions,
		Log:       a.log,
	}, a.cfg.Server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })

	if a.cfg.Catalog.Watch && a.cfg.Catalog.Path != "" {
		watcher, err := filewatcher.NewFSNotifyWatcher(a.loader.SupportedExtensions(), a.log)
		if err != nil {
			return err
		}
		defer watcher.Stop()

		events, err := watcher.WatchFile(ctx, a.cfg.Catalog.Path)
		if err != nil {
			return err
		}
		log := a.log.WithFields(logrus.Fields{"component": "catalog", "path": a.cfg.Catalog.Path})
		log.Info("watching catalog for changes")
		g.Go(func() error {
			a.sync.Run(ctx, a.cfg.Catalog.Path, events, func(c *usecases.Catalog, err error) {
				if err != nil {
					log.WithError(err).Warn("catalog reload failed; keeping previous catalog")
					return
				}
				log.WithField("products", c.Len()).Info("catalog reloaded")
			})
			return nil
		})
	}

	return g.Wait()
}
