// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the chordpaper HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Run database migrations before serving",
				Value: true,
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the latest database migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
			{
				Name:   "status",
				Usage:  "List applied database migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupStatus,
			},
			{
				Name:  "config",
				Usage: "Write the example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the configuration file to create",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand holds developer helpers for Google identity tokens.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Obtain and inspect Google ID tokens",
		Commands: []*cli.Command{
			{
				Name:  "google",
				Usage: "Sign in with Google in the browser and print an ID token usable as a bearer token",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: defaultAuthTimeout,
					},
				},
				Action: r.AuthGoogle,
			},
			{
				Name:  "verify",
				Usage: "Verify an ID token against the configured client id",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Usage:    "ID token to verify",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthVerify,
			},
		},
	}
}

// jobsCommand publishes split jobs by hand.
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Split job queue operations",
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "Publish a split job for one track",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "tracklist",
						Usage:    "Tracklist (song) ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "track",
						Usage:    "Track ID",
						Required: true,
					},
				},
				Action: r.JobsSend,
			},
		},
	}
}

// songsCommand reads songs straight from the database for operators.
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Song database operations",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Export the songs of a user with their tracklists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "owner",
						Usage:    "User ID whose songs are exported",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, markdown, text, json)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: stdout)",
					},
				},
				Action: r.SongsExport,
			},
		},
	}
}
