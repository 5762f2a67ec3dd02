package recipe

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/nightconcept/nativepkg/internal/core/patch"
)

// PackageSpec is the immutable identity of the packaged library.
type PackageSpec struct {
	Name        string   `toml:"name" json:"name" yaml:"name"`
	Version     string   `toml:"version" json:"version" yaml:"version"`
	License     string   `toml:"license,omitempty" json:"license,omitempty" yaml:"license,omitempty"`
	Author      string   `toml:"author,omitempty" json:"author,omitempty" yaml:"author,omitempty"`
	URL         string   `toml:"url" json:"url" yaml:"url"` // Upstream project URL the archive is fetched from
	Description string   `toml:"description,omitempty" json:"description,omitempty" yaml:"description,omitempty"`
	Topics      []string `toml:"topics,omitempty" json:"topics,omitempty" yaml:"topics,omitempty"`
}

// Settings describe the host and toolchain a build targets.
type Settings struct {
	OS          string `toml:"os,omitempty" json:"os" yaml:"os"`
	Arch        string `toml:"arch,omitempty" json:"arch" yaml:"arch"`
	Compiler    string `toml:"compiler,omitempty" json:"compiler" yaml:"compiler"`
	CompilerStd string `toml:"cppstd,omitempty" json:"cppstd,omitempty" yaml:"cppstd,omitempty"`
	BuildType   string `toml:"build_type,omitempty" json:"build_type" yaml:"build_type"`
}

// DefaultSettings returns settings for the running host with a Release build.
func DefaultSettings() Settings {
	return Settings{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Compiler:  defaultCompiler(runtime.GOOS),
		BuildType: "Release",
	}
}

func defaultCompiler(goos string) string {
	switch goos {
	case "windows":
		return "msvc"
	case "darwin":
		return "apple-clang"
	default:
		return "gcc"
	}
}

// IsWindows reports whether the target OS is Windows.
func (s Settings) IsWindows() bool {
	return strings.EqualFold(s.OS, "windows")
}

// Merge returns s with every non-empty field of override applied.
func (s Settings) Merge(override Settings) Settings {
	if override.OS != "" {
		s.OS = override.OS
	}
	if override.Arch != "" {
		s.Arch = override.Arch
	}
	if override.Compiler != "" {
		s.Compiler = override.Compiler
	}
	if override.CompilerStd != "" {
		s.CompilerStd = override.CompilerStd
	}
	if override.BuildType != "" {
		s.BuildType = override.BuildType
	}
	return s
}

// OptionSet holds the user-selectable options of a build.
type OptionSet struct {
	Shared        bool `toml:"shared" json:"shared" yaml:"shared"`
	BuildTests    bool `toml:"build_tests" json:"build_tests" yaml:"build_tests"`
	BuildExamples bool `toml:"build_examples" json:"build_examples" yaml:"build_examples"`
	// Dependency holds options forwarded to dependencies, keyed "<dep>:<option>".
	Dependency map[string]bool `toml:"dependency,omitempty" json:"dependency,omitempty" yaml:"dependency,omitempty"`
}

// Clone returns a deep copy of o.
func (o OptionSet) Clone() OptionSet {
	c := o
	if o.Dependency != nil {
		c.Dependency = make(map[string]bool, len(o.Dependency))
		for k, v := range o.Dependency {
			c.Dependency[k] = v
		}
	}
	return c
}

// DependencyOption returns the value of option name for dependency dep.
func (o OptionSet) DependencyOption(dep, name string) bool {
	return o.Dependency[dep+":"+name]
}

// Dependency is a native library the recipe builds against.
type Dependency struct {
	Name       string `toml:"-" json:"name" yaml:"name"`
	Version    string `toml:"version" json:"version" yaml:"version"`
	IncludeDir string `toml:"include_dir,omitempty" json:"include_dir,omitempty" yaml:"include_dir,omitempty"`
	LibDir     string `toml:"lib_dir,omitempty" json:"lib_dir,omitempty" yaml:"lib_dir,omitempty"`
}

// Recipe is everything needed to fetch, patch, build and package one library.
type Recipe struct {
	Spec         PackageSpec
	Settings     Settings
	Options      OptionSet
	Dependencies []Dependency
	// BuildTool is the semver constraint the external build tool must satisfy.
	BuildTool string
	Patches   []patch.Rule
	// Policy holds build configuration keys users cannot override.
	Policy map[string]string
	// LibName is the library base name; Debug builds append DebugSuffix.
	LibName     string
	DebugSuffix string
	IncludeDirs []string
	LibDirs     []string
	// LicensePattern selects license files (case-insensitive prefix of the base name).
	LicensePattern string
}

// Validate checks that version strings parse as semantic versions.
func (r Recipe) Validate() error {
	if _, err := semver.NewVersion(r.Spec.Version); err != nil {
		return fmt.Errorf("invalid version '%s' for %s: %w", r.Spec.Version, r.Spec.Name, err)
	}
	return r.ValidateRequirements()
}

// ValidateRequirements is Validate without the package version check, for
// callers that validate the version when it is used.
func (r Recipe) ValidateRequirements() error {
	if r.Spec.Name == "" {
		return fmt.Errorf("recipe has no package name")
	}
	for _, dep := range r.Dependencies {
		if _, err := semver.NewVersion(dep.Version); err != nil {
			return fmt.Errorf("invalid version '%s' for dependency %s: %w", dep.Version, dep.Name, err)
		}
	}
	if r.BuildTool != "" {
		if _, err := semver.NewConstraint(r.BuildTool); err != nil {
			return fmt.Errorf("invalid build tool constraint '%s': %w", r.BuildTool, err)
		}
	}
	return nil
}

// LibraryName returns the library file base name for buildType.
func (r Recipe) LibraryName(buildType string) string {
	if r.DebugSuffix != "" && buildType == "Debug" {
		return r.LibName + r.DebugSuffix
	}
	return r.LibName
}

// Dependency looks up a declared dependency by name.
func (r Recipe) Dependency(name string) (Dependency, bool) {
	for _, dep := range r.Dependencies {
		if dep.Name == name {
			return dep, true
		}
	}
	return Dependency{}, false
}

// WithDependencyHint returns a copy of r with include/lib hints set on dependency name.
// Empty values keep the existing hint.
func (r Recipe) WithDependencyHint(name, includeDir, libDir string) (Recipe, error) {
	deps := make([]Dependency, len(r.Dependencies))
	copy(deps, r.Dependencies)
	for i := range deps {
		if deps[i].Name != name {
			continue
		}
		if includeDir != "" {
			deps[i].IncludeDir = includeDir
		}
		if libDir != "" {
			deps[i].LibDir = libDir
		}
		r.Dependencies = deps
		return r, nil
	}
	return r, fmt.Errorf("unknown dependency '%s' for %s", name, r.Spec.Name)
}

// DependencyNames returns the declared dependency names, sorted.
func (r Recipe) DependencyNames() []string {
	names := make([]string, 0, len(r.Dependencies))
	for _, dep := range r.Dependencies {
		names = append(names, dep.Name)
	}
	sort.Strings(names)
	return names
}
