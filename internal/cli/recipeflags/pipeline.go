package recipeflags

import (
	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/core/cmake"
	"github.com/nightconcept/nativepkg/internal/core/orchestrator"
	"github.com/nightconcept/nativepkg/internal/core/recipe"
	"github.com/nightconcept/nativepkg/internal/core/runner"
)

// PipelineFlags returns the flags that control where and how a recipe runs.
func PipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "workdir",
			Usage: "Directory to extract and build in (defaults to a fresh npkg-<uuid> temp directory)",
		},
		&cli.StringFlag{
			Name:   "archive-base-url",
			Usage:  "Host source archives are downloaded from",
			Hidden: true,
		},
		&cli.BoolFlag{
			Name:  "resolve-commit",
			Usage: "Record the commit SHA of the release tag in the package manifest",
		},
		&cli.StringFlag{
			Name:  "generator",
			Usage: "CMake generator, e.g. Ninja",
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Parallel compile jobs passed to cmake --build",
		},
	}
}

// NewOrchestrator builds an orchestrator for r from the pipeline flags.
func NewOrchestrator(c *cli.Context, r recipe.Recipe, run runner.Runner) (*orchestrator.Orchestrator, error) {
	tool := cmake.New(run)
	tool.Generator = c.String("generator")
	tool.Jobs = c.Int("jobs")

	opts := []orchestrator.Option{
		orchestrator.WithTool(tool),
		orchestrator.WithWorkDir(c.String("workdir")),
		orchestrator.WithResolveCommit(c.Bool("resolve-commit")),
	}
	if base := c.String("archive-base-url"); base != "" {
		opts = append(opts, orchestrator.WithArchiveBaseURL(base))
	}
	return orchestrator.New(r, run, opts...)
}
