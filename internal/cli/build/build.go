package build

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/cli/recipeflags"
	"github.com/nightconcept/nativepkg/internal/core/runner"
)

// newRunner returns the runner external tools are executed with. Tests replace it.
var newRunner = func(stream io.Writer) runner.Runner {
	return &runner.ExecRunner{Stream: stream}
}

// NewBuildCommand creates the 'build' command, which runs the full recipe:
// fetch, patch, configure, compile, optionally test, and install into --prefix.
func NewBuildCommand() *cli.Command {
	flags := append(recipeflags.Flags(), recipeflags.PipelineFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:     "prefix",
			Aliases:  []string{"p"},
			Usage:    "Install prefix the package is written to",
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Do not stream CMake and CTest output",
		},
	)

	return &cli.Command{
		Name:  "build",
		Usage: "Fetches, patches, builds and installs the package into a prefix",
		Flags: flags,
		Action: func(c *cli.Context) error {
			out := c.App.Writer
			verbose := c.Bool("verbose")

			r, err := recipeflags.Resolve(c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}

			var stream io.Writer = out
			if c.Bool("quiet") {
				stream = nil
			}
			orch, err := recipeflags.NewOrchestrator(c, r, newRunner(stream))
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}
			if verbose {
				_, _ = fmt.Fprintf(out, "Building %s@%s (%s/%s, %s) in %s\n",
					r.Spec.Name, r.Spec.Version, r.Settings.OS, r.Settings.Arch, r.Settings.BuildType, orch.WorkDir())
			}

			desc, err := orch.Run(c.Context, c.String("prefix"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}

			ok := color.New(color.FgGreen, color.Bold).SprintFunc()
			dim := color.New(color.FgHiBlack).SprintFunc()
			_, _ = fmt.Fprintf(out, "%s %s@%s installed to %s\n", ok("Success:"), r.Spec.Name, r.Spec.Version, desc.Prefix)
			_, _ = fmt.Fprintf(out, "  include dirs: %s\n", strings.Join(desc.IncludeDirs, ", "))
			_, _ = fmt.Fprintf(out, "  lib dirs:     %s\n", strings.Join(desc.LibDirs, ", "))
			_, _ = fmt.Fprintf(out, "  libs:         %s\n", strings.Join(desc.Libs, ", "))
			_, _ = fmt.Fprintf(out, "  package id:   %s\n", dim(desc.PackageID))
			return nil
		},
	}
}
