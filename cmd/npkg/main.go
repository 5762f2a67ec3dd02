package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/cli/build"
	"github.com/nightconcept/nativepkg/internal/cli/configcmd"
	"github.com/nightconcept/nativepkg/internal/cli/fetch"
	"github.com/nightconcept/nativepkg/internal/cli/info"
	"github.com/nightconcept/nativepkg/internal/cli/initcmd"
	"github.com/nightconcept/nativepkg/internal/cli/remove"
	"github.com/nightconcept/nativepkg/internal/cli/self"
	"github.com/nightconcept/nativepkg/internal/core/logging"
)

const name = "npkg"

// version is set at build time with -ldflags "-X main.version=...".
var version = "v0.1.0"

func main() {
	app := &cli.App{
		Name:    name,
		Usage:   "Builds and packages native libraries from upstream source recipes",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn or error",
				EnvVars: []string{logging.EnvLogLevel},
				Value:   "warn",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Before: func(c *cli.Context) error {
			level := c.String("log-level")
			if c.Bool("verbose") && !c.IsSet("log-level") {
				level = "info"
			}
			logging.SetDefaultStructuredLogger(name, version, level)
			return nil
		},
		Action: func(c *cli.Context) error {
			// Default action if no command is specified
			_ = cli.ShowAppHelp(c)
			return nil
		},
		Commands: []*cli.Command{
			initcmd.NewInitCommand(),
			fetch.NewSourceCommand(),
			configcmd.NewConfigCommand(),
			build.NewBuildCommand(),
			info.InfoCmd,
			remove.RemoveCommand(),
			self.NewSelfCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}
