package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/versecraft/internal/adapters/filewatcher"
	"github.com/0xcro3dile/versecraft/internal/adapters/loader"
	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	httpserver "github.com/0xcro3dile/versecraft/internal/infrastructure/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web form and JSON API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := httpserver.NewServer(a.pipeline, httpserver.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		Locale:          entities.ParseLocale(cfg.UI.Locale),
	}, logger.Named("http"))
	if err != nil {
		return err
	}

	var watcher *filewatcher.Watcher
	if a.local != nil && cfg.Source.Watch {
		watcher, err = filewatcher.New(filewatcher.Options{Filter: loader.NewMultiLoader().Supports}, logger.Named("watcher"))
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer watcher.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	if watcher != nil {
		g.Go(func() error { return a.local.Watch(ctx, watcher) })
		logger.Info("watching poem directory", zap.String("dir", cfg.Source.Dir))
	}

	return g.Wait()
}
