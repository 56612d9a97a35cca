package main

import "github.com/urfave/cli/v3"

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// setupCommand creates the config file and the token database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the token database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "Spotify client id to store in the config",
			},
			&cli.StringFlag{
				Name:  "client-secret",
				Usage: "Spotify client secret to store in the config",
			},
			&cli.StringFlag{
				Name:  "redirect-uri",
				Usage: "Backend callback URI registered with Spotify",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the latest database migration instead of applying migrations",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the backend: login, code exchange and the /api proxy.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the backend (OAuth login, code exchange and Spotify API proxy)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.host and server.port)",
			},
		},
		Action: r.Serve,
	}
}

// loginCommand runs the browser authorization flow.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Log in with Spotify through the backend",
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Forget the stored access token",
		Action: r.Logout,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the current session state",
		Flags:  outputFlags(),
		Action: r.Status,
	}
}

// profileCommand loads the aggregated profile view.
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "profile",
		Usage:  "Show your profile with top artists and top tracks",
		Flags:  outputFlags(),
		Action: r.Profile,
	}
}

// exportCommand writes the profile view to a file.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export your profile, top artists and top tracks to a file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: text, csv or markdown",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (default: {user id}_profile.{ext})",
			},
			&cli.BoolFlag{
				Name:  "no-image",
				Usage: "Skip downloading the avatar for markdown exports",
			},
		},
		Action: r.Export,
	}
}

func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "artist",
		Usage: "Show details for an artist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  outputFlags(),
		Action: r.Artist,
	}
}

func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "track",
		Aliases: []string{"song"},
		Usage:   "Show details for a track",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  outputFlags(),
		Action: r.Track,
	}
}

// apiCommand provides direct access to the backend proxy.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct backend proxy access",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a backend path with the stored token, e.g. /api/profile",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags:  outputFlags(),
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive profile view.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive profile view",
		Action:  r.TUI,
	}
}
