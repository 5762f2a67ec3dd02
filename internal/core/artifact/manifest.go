// Package artifact describes an installed package: the descriptor consumers
// link against, the manifest recorded next to it and the packaging helpers
// that copy licenses and write checksums.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/nightconcept/nativepkg/internal/core/recipe"
)

const ManifestName = "npkg-package.toml"
const APIVersion = "1"

// Descriptor is the metadata consumers need to compile and link against an installed package.
type Descriptor struct {
	IncludeDirs []string `toml:"include_dirs" json:"include_dirs" yaml:"include_dirs"`
	LibDirs     []string `toml:"lib_dirs" json:"lib_dirs" yaml:"lib_dirs"`
	Libs        []string `toml:"libs" json:"libs" yaml:"libs"`
	Prefix      string   `toml:"prefix" json:"prefix" yaml:"prefix"`
	BuildType   string   `toml:"build_type" json:"build_type" yaml:"build_type"`
	PackageID   string   `toml:"package_id" json:"package_id" yaml:"package_id"`
}

// NewDescriptor returns the descriptor of r installed under prefix.
func NewDescriptor(r recipe.Recipe, prefix string) Descriptor {
	return Descriptor{
		IncludeDirs: append([]string(nil), r.IncludeDirs...),
		LibDirs:     append([]string(nil), r.LibDirs...),
		Libs:        []string{r.LibraryName(r.Settings.BuildType)},
		Prefix:      prefix,
		BuildType:   r.Settings.BuildType,
		PackageID:   PackageID(r),
	}
}

// SourceEntry records where the built sources came from.
// Example:
// [source]
//
//	url = "https://github.com/ceres-solver/ceres-solver/archive/1.14.0.tar.gz"
//	hash = "sha256:<hash_value>"
//	commit = "<commit_hash>"
type SourceEntry struct {
	URL    string `toml:"url" json:"url" yaml:"url"`
	Hash   string `toml:"hash" json:"hash" yaml:"hash"`
	Commit string `toml:"commit,omitempty" json:"commit,omitempty" yaml:"commit,omitempty"`
}

// Manifest represents the structure of the npkg-package.toml file.
type Manifest struct {
	ApiVersion   string                       `toml:"api_version" json:"api_version" yaml:"api_version"`
	Package      recipe.PackageSpec           `toml:"package" json:"package" yaml:"package"`
	Settings     recipe.Settings              `toml:"settings" json:"settings" yaml:"settings"`
	Options      recipe.OptionSet             `toml:"options" json:"options" yaml:"options"`
	Dependencies map[string]recipe.Dependency `toml:"dependencies,omitempty" json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Source       SourceEntry                  `toml:"source" json:"source" yaml:"source"`
	Artifact     Descriptor                   `toml:"artifact" json:"artifact" yaml:"artifact"`
}

// New creates a Manifest for r with the given source and descriptor.
func New(r recipe.Recipe, src SourceEntry, desc Descriptor) *Manifest {
	deps := make(map[string]recipe.Dependency, len(r.Dependencies))
	for _, dep := range r.Dependencies {
		deps[dep.Name] = dep
	}
	return &Manifest{
		ApiVersion:   APIVersion,
		Package:      r.Spec,
		Settings:     r.Settings,
		Options:      r.Options.Clone(),
		Dependencies: deps,
		Source:       src,
		Artifact:     desc,
	}
}

// ManifestPath returns the manifest location inside prefix.
func ManifestPath(prefix string) string {
	return filepath.Join(prefix, ManifestName)
}

// Load loads the manifest from the given install prefix.
// A missing manifest is reported with an error wrapping os.ErrNotExist.
func Load(prefix string) (*Manifest, error) {
	path := ManifestPath(prefix)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat manifest %s: %w", path, err)
	}

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	if m.ApiVersion == "" {
		m.ApiVersion = APIVersion
	}
	for name, dep := range m.Dependencies {
		dep.Name = name
		m.Dependencies[name] = dep
	}
	return &m, nil
}

// Save writes the manifest into the given install prefix.
func Save(prefix string, m *Manifest) error {
	path := ManifestPath(prefix)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create/truncate manifest %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest %s: %w", path, err)
	}
	return nil
}
