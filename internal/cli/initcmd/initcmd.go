package initcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/core/config"
	"github.com/nightconcept/nativepkg/internal/core/recipe"
)

// NewInitCommand creates the 'init' command, which writes a recipe.toml with
// the built-in recipe's defaults into the current directory.
func NewInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Writes a recipe.toml with the default options and dependency table",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Overwrite an existing recipe.toml",
			},
		},
		Action: func(c *cli.Context) error {
			path := filepath.Join(".", config.RecipeTomlName)
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return cli.Exit(fmt.Sprintf("Error: %s already exists. Use --force to overwrite it.", config.RecipeTomlName), 1)
			}

			base := recipe.Ceres()
			if err := config.WriteRecipeToml(".", recipe.NewFile(base)); err != nil {
				return cli.Exit(fmt.Sprintf("Error writing %s: %v", config.RecipeTomlName, err), 1)
			}

			_, _ = fmt.Fprintf(c.App.Writer, "Wrote %s for %s@%s\n", config.RecipeTomlName, base.Spec.Name, base.Spec.Version)
			return nil
		},
	}
}
