package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/soundcheck/internal/formatter"
	"github.com/desertthunder/soundcheck/internal/guard"
	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/profile"
	"github.com/desertthunder/soundcheck/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadProfile runs the guarded aggregator load and returns the ready view as an export record.
func (r *Runner) loadProfile(ctx context.Context) (*formatter.ProfileExport, error) {
	sess, err := r.sessionManager(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if err := r.authorize(sess, guard.Profile); err != nil {
		return nil, err
	}

	view := r.aggregator(sess).Load(ctx, func(v profile.View) {
		r.logger.Debug("profile view", "status", v.Status, "artists_pending", v.ArtistsPending, "tracks_pending", v.TracksPending)
	})
	if view.Status == profile.Error {
		return nil, fmt.Errorf("%w (run 'soundcheck logout' to start over)", view.Err)
	}

	return &formatter.ProfileExport{Profile: *view.Profile, Artists: view.Artists, Tracks: view.Tracks}, nil
}

// Profile loads the aggregated profile view and prints it.
func (r *Runner) Profile(ctx context.Context, cmd *cli.Command) error {
	export, err := r.loadProfile(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, cmd.Bool("pretty"))
	}

	data, err := formatter.ExportToText(export)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// Export loads the profile view and writes it to a file.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	export, err := r.loadProfile(ctx)
	if err != nil {
		return err
	}

	var client *http.Client
	if !cmd.Bool("no-image") {
		client = r.httpClient
	}

	result, err := formatter.WriteExport(ctx, export, format, cmd.String("output"), client, func(err error) {
		r.logger.Warn("export image skipped", "error", err)
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %s profile to %s\n", format, result.Path)
	if result.CoverImage != "" {
		r.writePlain("✓ Avatar saved to %s\n", result.CoverImage)
	}
	return nil
}

// Artist prints a single artist's detail record.
func (r *Runner) Artist(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDetail(ctx, models.KindArtist, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(d.Artist, cmd.Bool("pretty"))
	}

	a := d.Artist
	r.writePlainHeader(a.Name)
	if len(a.Genres) > 0 {
		r.writePlain("Genres:     %s\n", strings.Join(a.Genres, ", "))
	}
	r.writePlain("Popularity: %d/100\n", a.Popularity)
	r.writePlain("Followers:  %d\n", a.Followers)
	if a.SpotifyURL != "" {
		r.writePlain("Link:       %s\n", a.SpotifyURL)
	}
	return nil
}

// Track prints a single track's detail record.
func (r *Runner) Track(ctx context.Context, cmd *cli.Command) error {
	d, err := r.openDetail(ctx, models.KindTrack, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(d.Track, cmd.Bool("pretty"))
	}

	t := d.Track
	r.writePlainHeader(t.Name)
	r.writePlain("Artists:    %s\n", t.ArtistNames())
	if t.Album.Name != "" {
		r.writePlain("Album:      %s\n", t.Album.Name)
	}
	if t.Album.ReleaseDate != "" {
		r.writePlain("Released:   %s\n", t.Album.ReleaseDate)
	}
	r.writePlain("Duration:   %s\n", t.FormatDuration())
	r.writePlain("Popularity: %d/100\n", t.Popularity)
	if t.Explicit {
		r.writePlain("Explicit:   yes\n")
	}
	if t.SpotifyURL != "" {
		r.writePlain("Link:       %s\n", t.SpotifyURL)
	}
	return nil
}

func (r *Runner) openDetail(ctx context.Context, kind models.EntityKind, id string) (profile.Detail, error) {
	if strings.TrimSpace(id) == "" {
		return profile.Detail{}, fmt.Errorf("%w: %s id", shared.ErrMissingArgument, kind)
	}

	sess, err := r.sessionManager(ctx)
	if err != nil {
		return profile.Detail{}, err
	}
	defer r.Close()

	if err := r.authorize(sess, guard.Detail); err != nil {
		return profile.Detail{}, err
	}
	return r.detailFetcher(sess).Open(ctx, kind, id)
}
