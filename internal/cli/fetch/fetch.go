package fetch

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/cli/recipeflags"
	"github.com/nightconcept/nativepkg/internal/core/patch"
	"github.com/nightconcept/nativepkg/internal/core/runner"
)

// NewSourceCommand creates the 'source' command: download, extract and patch
// the upstream sources without building them.
func NewSourceCommand() *cli.Command {
	return &cli.Command{
		Name:  "source",
		Usage: "Downloads the upstream source archive, extracts it and applies the recipe's patches",
		Flags: append(recipeflags.Flags(), recipeflags.PipelineFlags()...),
		Action: func(c *cli.Context) error {
			verbose := c.Bool("verbose")
			out := c.App.Writer

			r, err := recipeflags.Resolve(c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}
			orch, err := recipeflags.NewOrchestrator(c, r, &runner.ExecRunner{})
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}
			if verbose {
				_, _ = fmt.Fprintf(out, "Fetching %s@%s for %s into %s\n", r.Spec.Name, r.Spec.Version, r.Settings.OS, orch.WorkDir())
			}

			dir, err := orch.FetchSource(c.Context, r.Spec.Version, r.Settings.OS)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}
			if verbose {
				_, _ = fmt.Fprintf(out, "Downloaded %s (%s)\n", orch.Source().URL, orch.Source().Hash)
			}

			results, err := orch.ApplyPatches(dir, r.Settings.OS, r.Settings.CompilerStd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}

			applied := color.New(color.FgGreen).SprintFunc()
			skipped := color.New(color.FgHiBlack).SprintFunc()
			for _, res := range results {
				if res.Outcome == patch.Applied {
					_, _ = fmt.Fprintf(out, "  %s %s (%s)\n", applied("patched"), res.Rule, res.File)
				} else if verbose {
					_, _ = fmt.Fprintf(out, "  %s %s: %s\n", skipped("skipped"), res.Rule, res.Outcome)
				}
			}
			_, _ = fmt.Fprintf(out, "Source ready at %s\n", dir)
			return nil
		},
	}
}
