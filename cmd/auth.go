package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/soundcheck/internal/server"
	"github.com/desertthunder/soundcheck/internal/session"
	"github.com/desertthunder/soundcheck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login opens the backend login page and waits for the backend to deliver a token to the callback listener.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.sessionManager(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.login(ctx, sess)
}

func (r *Runner) login(ctx context.Context, sess *session.Manager) error {
	logger := shared.WithLogger(r.logger, "component", "callback")
	handler := server.NewCallbackHandler(sess, r.guard, logger)

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(logger))
	router.Handler(handler)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	addr := r.config.Client.CallbackAddr()
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(ctx, addr, router, logger)
	}()

	if err := sess.Login(ctx); err != nil {
		return err
	}
	r.writePlain("Opened %s in your browser, waiting for the callback on %s...\n", r.config.Client.LoginURL(), addr)

	var timeout <-chan time.Time
	if d := r.config.Client.LoginTimeout.Duration; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return err
		}
		r.logger.Info("login complete", "next", result.Destination)
		return r.writePlain("✓ Logged in\n")
	case err := <-errCh:
		if err == nil {
			err = ctx.Err()
		}
		return fmt.Errorf("%w: callback listener on %s: %v", shared.ErrServiceUnavailable, addr, err)
	case <-timeout:
		return fmt.Errorf("%w: no callback within %s", shared.ErrTimeout, r.config.Client.LoginTimeout.Duration)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Logout clears the stored token.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.sessionManager(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := sess.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

type statusOutput struct {
	State         string `json:"state"`
	Authenticated bool   `json:"authenticated"`
	Backend       string `json:"backend"`
	Database      string `json:"database"`
}

// Status reports the restored session state without calling the backend.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.sessionManager(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	snap := sess.Snapshot()
	out := statusOutput{
		State:         snap.State.String(),
		Authenticated: snap.Authenticated(),
		Backend:       r.config.Client.APIURL,
		Database:      r.config.Database.Path,
	}
	if r.ephemeral {
		out.Database = "memory"
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlain("Backend: %s\n", out.Backend)
	if out.Authenticated {
		return r.writePlain("Session: ✓ Authenticated\n")
	}
	return r.writePlain("Session: ✗ Not authenticated (run 'soundcheck login')\n")
}
