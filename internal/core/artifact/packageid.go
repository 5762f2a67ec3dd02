package artifact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nightconcept/nativepkg/internal/core/hasher"
	"github.com/nightconcept/nativepkg/internal/core/recipe"
)

// PackageID identifies a binary configuration of r: the same package, settings,
// options and dependency pins always produce the same ID. Dependency path hints
// are local to a machine and do not contribute.
func PackageID(r recipe.Recipe) string {
	lines := []string{
		"name=" + r.Spec.Name,
		"version=" + r.Spec.Version,
		"settings.os=" + r.Settings.OS,
		"settings.arch=" + r.Settings.Arch,
		"settings.compiler=" + r.Settings.Compiler,
		"settings.cppstd=" + r.Settings.CompilerStd,
		"settings.build_type=" + r.Settings.BuildType,
		fmt.Sprintf("options.shared=%t", r.Options.Shared),
		fmt.Sprintf("options.build_tests=%t", r.Options.BuildTests),
		fmt.Sprintf("options.build_examples=%t", r.Options.BuildExamples),
	}
	for k, v := range r.Options.Dependency {
		lines = append(lines, fmt.Sprintf("options.%s=%t", k, v))
	}
	for _, dep := range r.Dependencies {
		lines = append(lines, "requires."+dep.Name+"="+dep.Version)
	}
	sort.Strings(lines)

	// Hashing an in-memory buffer does not fail.
	sum, _ := hasher.CalculateSHA256([]byte(strings.Join(lines, "\n")))
	return strings.TrimPrefix(sum, "sha256:")[:40]
}
