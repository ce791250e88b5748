package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nirvaan-oms/api/internal/client"
	"github.com/nirvaan-oms/api/internal/config"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/tracker"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tracker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadTracker()
	if err != nil {
		return err
	}
	logger.Init(config.ParseEnvironment(cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.APIURL,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithCredentials(cfg.Email, cfg.Password),
	)
	user, err := api.Login(ctx)
	if err != nil {
		return err
	}
	logger.Info().Str("email", user.Email).Str("role", user.Role).Str("api", cfg.APIURL).Msg("logged in")

	syncer := tracker.NewSyncer(api, tracker.NewCourierCache(), cfg.PollInterval, cfg.PageSize)
	sub := tracker.NewSubscriber(api, syncer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncer.Run(gctx)
	})
	g.Go(func() error {
		return sub.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Int("orders", syncer.Cache().Len()).Msg("tracker stopped")
	return nil
}
