package system

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/timeblock/internal/api"
	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/logger"
)

type ServeCmd struct {
	Addr   string `help:"Listen address. Defaults to server.addr from the config."`
	NoCron bool   `help:"Do not run the background batch pass."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	addr := c.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := api.NewHandler(api.Config{
		Passes:     ctx.Runner,
		Views:      ctx.Scheduler,
		RatePerSec: cfg.Server.RatePerSec,
		Burst:      cfg.Server.Burst,
		Defaults:   ctx.Options(),
		Now:        ctx.Now,
	})
	read, write, shutdown := cfg.Server.Timeouts()
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.NewMux(),
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
	}

	if cfg.Scheduler.BatchEnabled() && !c.NoCron {
		if _, err := ctx.Runner.StartCron(sigCtx, cfg.Scheduler.Cron, cfg.Scheduler.Concurrency, ctx.Options()); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		fmt.Fprintf(ctx.Out, "Listening on %s\n", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	logger.Info("Server stopped")
	return err
}
