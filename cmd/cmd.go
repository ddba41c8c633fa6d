// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// importFlags are shared by both import commands.
func importFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Number of leading records to skip",
		},
		&cli.IntFlag{
			Name:  "delay-ms",
			Usage: "Pause before each record, in milliseconds",
		},
		&cli.IntFlag{
			Name:  "cooldown-ms",
			Usage: "Pause after a rate-limit response, in milliseconds",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show interactive progress view",
		},
	}
}

// usersCommand imports user records
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "users",
		Aliases: []string{"u"},
		Usage:   "Import user records from a legacy export file",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags:  importFlags(),
		Action: r.ImportUsers,
	}
}

// orgsCommand imports organization records
func orgsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "orgs",
		Aliases: []string{"o"},
		Usage:   "Import organization records from a legacy export file",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags:  importFlags(),
		Action: r.ImportOrgs,
	}
}

// runsCommand inspects recorded run history
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Run history operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent migration runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.RunsList,
			},
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize local state",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize run-history database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
