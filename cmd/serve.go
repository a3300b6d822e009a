package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytpub/internal/server"
)

const serverShutdownTimeout = 10 * time.Second

// Serve runs the publish API until interrupted. Queued publishes drain before exit.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command, a *app) error {
	host := r.config.Server.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	server.NewPublishHandler(a.publisher, a.publishes, r.logger).Register(router)
	server.NewConnectHandler(a.resolver, a.channels, r.logger).Register(router)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(host, port, router, r.logger)
	errs := srv.Start()

	r.writePlain("→ Listening on http://%s\n", srv.Addr())

	var serveErr error
	select {
	case err, ok := <-errs:
		if ok {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		r.logger.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	r.logger.Info("waiting for queued publishes")
	return serveErr
}
