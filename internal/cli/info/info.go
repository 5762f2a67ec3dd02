package info

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/nightconcept/nativepkg/internal/core/artifact"
)

// InfoCmd defines the structure for the 'info' command.
var InfoCmd = &cli.Command{
	Name:    "info",
	Aliases: []string{"show"},
	Usage:   "Displays an installed package's metadata and integrity status",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "prefix",
			Aliases: []string{"p"},
			Usage:   "Install prefix to inspect",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format: text, json or yaml",
			Value: "text",
		},
	},
	Action: func(c *cli.Context) error {
		prefix := c.String("prefix")
		m, err := artifact.Load(prefix)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cli.Exit(fmt.Sprintf("Error: %s not found in %s. Run 'npkg build --prefix %s' first.", artifact.ManifestName, prefix, prefix), 1)
			}
			return cli.Exit(fmt.Sprintf("Error loading %s: %v", artifact.ManifestName, err), 1)
		}

		out := c.App.Writer
		switch c.String("format") {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(m); err != nil {
				return cli.Exit(fmt.Sprintf("Error encoding manifest: %v", err), 1)
			}
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(m); err != nil {
				return cli.Exit(fmt.Sprintf("Error encoding manifest: %v", err), 1)
			}
			_ = enc.Close()
		case "text":
			printText(out, prefix, m)
		default:
			return cli.Exit(fmt.Sprintf("Error: unknown format '%s'", c.String("format")), 1)
		}
		return nil
	},
}

func printText(out io.Writer, prefix string, m *artifact.Manifest) {
	nameColor := color.New(color.FgMagenta, color.Bold, color.Underline).SprintFunc()
	versionColor := color.New(color.FgMagenta).SprintFunc()
	pathColor := color.New(color.FgHiBlack, color.Bold, color.Underline).SprintFunc()
	headerColor := color.New(color.FgCyan, color.Bold).SprintFunc()
	keyColor := color.New(color.FgWhite).SprintFunc()
	hashColor := color.New(color.FgYellow).SprintFunc()
	dimColor := color.New(color.FgHiBlack).SprintFunc()
	badColor := color.New(color.FgRed).SprintFunc()

	_, _ = fmt.Fprintf(out, "%s@%s %s\n", nameColor(m.Package.Name), versionColor(m.Package.Version), pathColor(m.Artifact.Prefix))
	if m.Package.Description != "" {
		_, _ = fmt.Fprintln(out, m.Package.Description)
	}
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprintln(out, headerColor("settings:"))
	s := m.Settings
	_, _ = fmt.Fprintf(out, "%s %s/%s %s %s\n", keyColor("platform"), s.OS, s.Arch, s.Compiler, dimColor(cppstd(s.CompilerStd)))
	_, _ = fmt.Fprintf(out, "%s %s\n", keyColor("build_type"), s.BuildType)

	_, _ = fmt.Fprintln(out, headerColor("options:"))
	_, _ = fmt.Fprintf(out, "%s %t\n", keyColor("shared"), m.Options.Shared)
	_, _ = fmt.Fprintf(out, "%s %t\n", keyColor("build_tests"), m.Options.BuildTests)
	_, _ = fmt.Fprintf(out, "%s %t\n", keyColor("build_examples"), m.Options.BuildExamples)
	for _, k := range sortedKeys(m.Options.Dependency) {
		_, _ = fmt.Fprintf(out, "%s %t\n", keyColor(k), m.Options.Dependency[k])
	}

	_, _ = fmt.Fprintln(out, headerColor("dependencies:"))
	if len(m.Dependencies) == 0 {
		_, _ = fmt.Fprintln(out, "No dependencies recorded.")
	}
	for _, name := range sortedKeys(m.Dependencies) {
		_, _ = fmt.Fprintf(out, "%s %s\n", keyColor(name), m.Dependencies[name].Version)
	}

	_, _ = fmt.Fprintln(out, headerColor("source:"))
	_, _ = fmt.Fprintf(out, "%s %s\n", hashColor(m.Source.Hash), dimColor(m.Source.URL))
	if m.Source.Commit != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n", keyColor("commit"), hashColor(m.Source.Commit))
	}

	_, _ = fmt.Fprintln(out, headerColor("artifact:"))
	a := m.Artifact
	_, _ = fmt.Fprintf(out, "%s %s\n", keyColor("include_dirs"), strings.Join(a.IncludeDirs, ", "))
	_, _ = fmt.Fprintf(out, "%s %s\n", keyColor("lib_dirs"), strings.Join(a.LibDirs, ", "))
	_, _ = fmt.Fprintf(out, "%s %s\n", keyColor("libs"), strings.Join(a.Libs, ", "))
	_, _ = fmt.Fprintf(out, "%s %s\n", keyColor("package_id"), dimColor(a.PackageID))

	_, _ = fmt.Fprintln(out, headerColor("integrity:"))
	bad, err := artifact.VerifyChecksums(prefix)
	switch {
	case err != nil:
		_, _ = fmt.Fprintf(out, "%s\n", badColor("no checksums recorded"))
	case len(bad) == 0:
		_, _ = fmt.Fprintln(out, "all files match checksums.txt")
	default:
		for _, rel := range bad {
			_, _ = fmt.Fprintf(out, "%s %s\n", badColor("modified or missing"), rel)
		}
	}
}

func cppstd(std string) string {
	switch {
	case std == "":
		return "(default cppstd)"
	case strings.HasPrefix(std, "gnu"):
		return std
	default:
		return "c++" + std
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
