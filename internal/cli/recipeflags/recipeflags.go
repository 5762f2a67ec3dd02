// Package recipeflags holds the flags shared by commands that resolve a recipe:
// the built-in ceres-solver recipe, overlaid with ./recipe.toml, overlaid with
// whatever flags were set on the command line.
package recipeflags

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/core/config"
	"github.com/nightconcept/nativepkg/internal/core/recipe"
)

// Flags returns fresh copies of the recipe override flags.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "version",
			Usage: "Upstream release to build (defaults to the recipe's version)",
		},
		&cli.StringFlag{
			Name:  "os",
			Usage: "Target operating system, e.g. linux, darwin or windows (defaults to the host)",
		},
		&cli.StringFlag{
			Name:  "arch",
			Usage: "Target architecture (defaults to the host)",
		},
		&cli.StringFlag{
			Name:  "compiler",
			Usage: "Compiler family, e.g. gcc, clang, apple-clang or msvc",
		},
		&cli.StringFlag{
			Name:  "cppstd",
			Usage: "C++ standard, e.g. 14, 17 or gnu17",
		},
		&cli.StringFlag{
			Name:    "build-type",
			Aliases: []string{"t"},
			Usage:   "CMake build type (Release, Debug, RelWithDebInfo, MinSizeRel)",
		},
		&cli.BoolFlag{
			Name:  "shared",
			Usage: "Build a shared library",
		},
		&cli.BoolFlag{
			Name:  "build-tests",
			Usage: "Build and run the upstream test suite",
		},
		&cli.BoolFlag{
			Name:  "build-examples",
			Usage: "Build the upstream examples",
		},
		&cli.StringSliceFlag{
			Name: "dep",
			Usage: fmt.Sprintf("Dependency location hint as name=include_dir[%clib_dir], e.g. eigen=/usr/include/eigen3",
				filepath.ListSeparator),
		},
	}
}

// ParseDependencyHint splits "name=include_dir[<list separator>lib_dir]".
func ParseDependencyHint(s string) (name, includeDir, libDir string, err error) {
	name, dirs, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", "", fmt.Errorf("invalid dependency hint '%s': expected name=include_dir[%clib_dir]", s, filepath.ListSeparator)
	}
	includeDir, libDir, _ = strings.Cut(dirs, string(filepath.ListSeparator))
	if includeDir == "" && libDir == "" {
		return "", "", "", fmt.Errorf("invalid dependency hint '%s': no directories given", s)
	}
	return name, includeDir, libDir, nil
}

// Resolve builds the effective recipe for a command run from the current directory.
func Resolve(c *cli.Context) (recipe.Recipe, error) {
	r, err := config.ResolveRecipe(".", recipe.Ceres())
	if err != nil {
		return r, fmt.Errorf("failed to load %s: %w", config.RecipeTomlName, err)
	}

	if v := c.String("version"); v != "" {
		r.Spec.Version = v
	}
	r.Settings = r.Settings.Merge(recipe.Settings{
		OS:          c.String("os"),
		Arch:        c.String("arch"),
		Compiler:    c.String("compiler"),
		CompilerStd: c.String("cppstd"),
		BuildType:   c.String("build-type"),
	})

	r.Options = r.Options.Clone()
	if c.IsSet("shared") {
		r.Options.Shared = c.Bool("shared")
	}
	if c.IsSet("build-tests") {
		r.Options.BuildTests = c.Bool("build-tests")
	}
	if c.IsSet("build-examples") {
		r.Options.BuildExamples = c.Bool("build-examples")
	}

	for _, hint := range c.StringSlice("dep") {
		name, inc, lib, err := ParseDependencyHint(hint)
		if err != nil {
			return r, err
		}
		if r, err = r.WithDependencyHint(name, inc, lib); err != nil {
			return r, err
		}
	}
	return r, nil
}
