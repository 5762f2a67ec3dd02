package configcmd

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/cli/recipeflags"
	"github.com/nightconcept/nativepkg/internal/core/buildconfig"
)

// NewConfigCommand creates the 'config' command, which prints the build
// configuration the resolved recipe would hand to CMake.
func NewConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Prints the CMake cache entries derived from the recipe options",
		Flags: append(recipeflags.Flags(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: args, text or json",
				Value: "text",
			},
		),
		Action: func(c *cli.Context) error {
			r, err := recipeflags.Resolve(c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}
			cfg := buildconfig.Derive(buildconfig.FromRecipe(r))
			out := c.App.Writer

			switch c.String("format") {
			case "args":
				for _, arg := range cfg.Args() {
					_, _ = fmt.Fprintln(out, arg)
				}
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(cfg); err != nil {
					return cli.Exit(fmt.Sprintf("Error encoding config: %v", err), 1)
				}
			case "text":
				for _, k := range cfg.Keys() {
					_, _ = fmt.Fprintf(out, "%s=%s\n", k, cfg[k])
				}
			default:
				return cli.Exit(fmt.Sprintf("Error: unknown format '%s'", c.String("format")), 1)
			}
			return nil
		},
	}
}
