package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "guild-guardian",
		Usage: "Discord guild protection bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML/TOML/JSON config file",
				EnvVars: []string{"GUARDIAN_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			runCmd,
			sweepCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
