package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/soundcheck/internal/guard"
	"github.com/desertthunder/soundcheck/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the backend with the stored bearer token.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	sess, err := r.sessionManager(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	dest := guard.ParseDestination(path)
	if strings.HasPrefix(path, "/api/") {
		dest = guard.Profile
	}
	if err := r.authorize(sess, dest); err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.upstream().Get(ctx, sess.Token(), path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON && cmd.Bool("json") {
		return r.writeJSON(json.RawMessage(resp.Body), false)
	}
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
