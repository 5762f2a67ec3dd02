package recipe

// File is the on-disk recipe.toml: per-project overrides of a built-in recipe.
type File struct {
	Package      *PackageRef           `toml:"package"`
	Settings     Settings              `toml:"settings"`
	Options      OptionSet             `toml:"options"`
	Dependencies map[string]Dependency `toml:"dependencies,omitempty"`
}

// PackageRef names the built-in recipe and the upstream version to build.
type PackageRef struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// NewFile returns a File carrying r's defaults.
func NewFile(r Recipe) *File {
	f := &File{
		Package:      &PackageRef{Name: r.Spec.Name, Version: r.Spec.Version},
		Settings:     Settings{BuildType: r.Settings.BuildType},
		Options:      r.Options.Clone(),
		Dependencies: make(map[string]Dependency, len(r.Dependencies)),
	}
	for _, dep := range r.Dependencies {
		f.Dependencies[dep.Name] = dep
	}
	return f
}

// Apply overlays f onto r. Unknown dependencies are rejected; pinned
// dependency versions are owned by the recipe and are not overridden.
func (r Recipe) Apply(f *File) (Recipe, error) {
	if f == nil {
		return r, nil
	}
	if f.Package != nil && f.Package.Version != "" {
		r.Spec.Version = f.Package.Version
	}
	r.Settings = r.Settings.Merge(f.Settings)

	opts := f.Options.Clone()
	merged := r.Options.Clone()
	merged.Shared = opts.Shared
	merged.BuildTests = opts.BuildTests
	merged.BuildExamples = opts.BuildExamples
	for k, v := range opts.Dependency {
		if merged.Dependency == nil {
			merged.Dependency = make(map[string]bool)
		}
		merged.Dependency[k] = v
	}
	r.Options = merged

	for name, dep := range f.Dependencies {
		var err error
		r, err = r.WithDependencyHint(name, dep.IncludeDir, dep.LibDir)
		if err != nil {
			return r, err
		}
	}
	return r, r.Validate()
}
