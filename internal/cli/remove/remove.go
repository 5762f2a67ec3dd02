package remove

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/core/artifact"
)

// RemoveCommand defines the structure for the 'remove' CLI command.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:  "remove",
		Usage: "Removes an installed package from a prefix",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "prefix",
				Aliases:  []string{"p"},
				Usage:    "Install prefix the package was written to",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			prefix := c.String("prefix")

			m, err := artifact.Load(prefix)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return cli.Exit(fmt.Sprintf("Error: %s not found in %s. Nothing to remove.", artifact.ManifestName, prefix), 1)
				}
				return cli.Exit(fmt.Sprintf("Error: Failed to load %s: %v", artifact.ManifestName, err), 1)
			}

			removed, err := artifact.RemoveInstalled(prefix)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: Failed to remove %s: %v", m.Package.Name, err), 1)
			}
			_, _ = fmt.Fprintf(c.App.Writer, "Removed %s@%s (%d files) from %s\n", m.Package.Name, m.Package.Version, removed, prefix)
			return nil
		},
	}
}
