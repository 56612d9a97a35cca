package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/soundcheck/internal/server"
	"github.com/desertthunder/soundcheck/internal/services"
	"github.com/desertthunder/soundcheck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if err := creds.Validate(); err != nil {
		return err
	}

	spotify, err := services.NewSpotifyService(creds.Map(),
		services.WithHTTPClient(r.httpClient),
		services.WithRateLimit(r.config.Server.UpstreamRPS),
	)
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	logger := shared.WithLogger(r.logger, "component", "backend")
	proxy := server.NewProxyHandler(spotify, logger)
	login := server.NewLoginHandler(spotify, r.config.Server.ClientRedirect, logger)
	router := server.NewProxyRouter(proxy, login, logger)

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("backend starting", "addr", addr, "redirect_uri", creds.NormalizedRedirectURI(), "client_redirect", r.config.Server.ClientRedirect)
	return server.ListenAndServe(ctx, addr, router, logger)
}
