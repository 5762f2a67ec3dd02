// Package orchestrator runs a recipe end to end: fetch the upstream archive,
// patch it, configure and build it with CMake, optionally test it, and
// install it into a prefix.
//
// The steps form a linear state machine:
//
//	UNFETCHED -> FETCHED -> PATCHED -> CONFIGURED -> BUILT -> (TESTED) -> INSTALLED
//
// Any failure moves the orchestrator to the terminal FAILED state. Nothing is
// retried; Run always starts again from UNFETCHED.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/nightconcept/nativepkg/internal/core/archive"
	"github.com/nightconcept/nativepkg/internal/core/artifact"
	"github.com/nightconcept/nativepkg/internal/core/buildconfig"
	"github.com/nightconcept/nativepkg/internal/core/cmake"
	"github.com/nightconcept/nativepkg/internal/core/downloader"
	rerrors "github.com/nightconcept/nativepkg/internal/core/errors"
	"github.com/nightconcept/nativepkg/internal/core/hasher"
	"github.com/nightconcept/nativepkg/internal/core/patch"
	"github.com/nightconcept/nativepkg/internal/core/recipe"
	"github.com/nightconcept/nativepkg/internal/core/runner"
	"github.com/nightconcept/nativepkg/internal/core/source"
)

// WorkDirPrefix prefixes generated work directory names.
const WorkDirPrefix = "npkg-"

// BuildOutput is what ConfigureAndBuild hands to Install.
type BuildOutput struct {
	SourceDir string
	BuildDir  string
	BuildType string
	Config    buildconfig.Config
	Tested    bool
}

// Orchestrator drives one recipe through its state machine. It is not safe
// for concurrent use.
type Orchestrator struct {
	recipe         recipe.Recipe
	project        *source.ProjectInfo
	tool           *cmake.Tool
	logger         *slog.Logger
	workDir        string
	fixedWorkDir   bool
	archiveBaseURL string
	resolveCommit  bool

	state   State
	history []State
	source  artifact.SourceEntry
	version string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkDir fixes the directory sources are extracted and built in.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) {
		o.workDir = dir
		o.fixedWorkDir = dir != ""
	}
}

// WithArchiveBaseURL overrides the host archives are downloaded from.
func WithArchiveBaseURL(base string) Option {
	return func(o *Orchestrator) { o.archiveBaseURL = base }
}

// WithLogger sets the logger state transitions are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithResolveCommit records the commit SHA of the fetched tag in the manifest.
func WithResolveCommit(resolve bool) Option {
	return func(o *Orchestrator) { o.resolveCommit = resolve }
}

// WithTool replaces the CMake tool built from the runner.
func WithTool(t *cmake.Tool) Option {
	return func(o *Orchestrator) { o.tool = t }
}

// New returns an orchestrator for r that runs external tools through run.
// The recipe is copied; later changes to the caller's value have no effect.
func New(r recipe.Recipe, run runner.Runner, opts ...Option) (*Orchestrator, error) {
	if err := r.ValidateRequirements(); err != nil {
		return nil, rerrors.Wrap(rerrors.ErrCodeInvalidRequest, "invalid recipe", err)
	}
	project, err := source.ParseProjectURL(r.Spec.URL)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ErrCodeInvalidRequest, "invalid recipe source URL", err)
	}
	r.Options = r.Options.Clone()
	r.Dependencies = append([]recipe.Dependency(nil), r.Dependencies...)

	o := &Orchestrator{
		recipe:         r,
		project:        project,
		tool:           cmake.New(run),
		logger:         slog.Default(),
		archiveBaseURL: source.DefaultArchiveBaseURL,
		state:          StateUnfetched,
		history:        []State{StateUnfetched},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workDir == "" {
		o.workDir = newWorkDir()
	}
	return o, nil
}

func newWorkDir() string {
	return filepath.Join(os.TempDir(), WorkDirPrefix+uuid.NewString())
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// History returns every state visited since the last reset, in order.
func (o *Orchestrator) History() []State {
	return append([]State(nil), o.history...)
}

// WorkDir returns the directory sources are extracted and built in.
func (o *Orchestrator) WorkDir() string {
	return o.workDir
}

// Recipe returns the recipe being built.
func (o *Orchestrator) Recipe() recipe.Recipe {
	return o.recipe
}

// Source returns the fetched archive's URL, hash and commit.
func (o *Orchestrator) Source() artifact.SourceEntry {
	return o.source
}

func (o *Orchestrator) transition(to State) {
	from := o.state
	o.state = to
	o.history = append(o.history, to)
	o.logger.Info("state transition", "package", o.recipe.Spec.Name, "from", from, "to", to)
}

// fail moves to FAILED and returns err.
func (o *Orchestrator) fail(err error) error {
	o.transition(StateFailed)
	o.logger.Error("recipe run failed", "package", o.recipe.Spec.Name, "error", err)
	return err
}

func (o *Orchestrator) require(op string, want State) error {
	if o.state == want {
		return nil
	}
	return rerrors.NewWithContext(rerrors.ErrCodeInvalidRequest,
		fmt.Sprintf("%s called out of order", op),
		map[string]any{"state": o.state, "required": want})
}

func (o *Orchestrator) reset() {
	if !o.fixedWorkDir && o.state != StateUnfetched {
		o.workDir = newWorkDir()
	}
	o.state = StateUnfetched
	o.history = []State{StateUnfetched}
	o.source = artifact.SourceEntry{}
	o.version = ""
}

// FetchSource downloads the upstream archive for version, extracts it into
// the work directory and renames its root to the package name. The archive
// is a .zip on Windows hosts and a .tar.gz everywhere else.
func (o *Orchestrator) FetchSource(ctx context.Context, version, hostOS string) (string, error) {
	if err := o.require("FetchSource", StateUnfetched); err != nil {
		return "", err
	}
	if _, err := semver.NewVersion(version); err != nil {
		return "", o.fail(rerrors.WrapWithContext(rerrors.ErrCodeSourceUnavailable,
			"version is not a published release", err, map[string]any{"version": version}))
	}

	url := source.ArchiveURL(o.archiveBaseURL, o.project, version, hostOS)
	o.logger.Info("fetching source", "url", url)
	data, err := downloader.DownloadFile(ctx, url)
	if err != nil {
		return "", o.fail(rerrors.WrapWithContext(rerrors.ErrCodeSourceUnavailable,
			"failed to download source archive", err, map[string]any{"url": url}))
	}
	sum, err := hasher.CalculateSHA256(data)
	if err != nil {
		return "", o.fail(rerrors.Wrap(rerrors.ErrCodeSourceUnavailable, "failed to hash source archive", err))
	}

	staging := filepath.Join(o.workDir, "extract")
	if err := os.RemoveAll(staging); err != nil {
		return "", o.fail(rerrors.Wrap(rerrors.ErrCodeExtraction, "failed to clear staging directory", err))
	}
	if err := archive.Extract(data, source.ArchiveExtension(hostOS), staging); err != nil {
		return "", o.fail(rerrors.WrapWithContext(rerrors.ErrCodeExtraction,
			"failed to extract source archive", err, map[string]any{"url": url}))
	}

	root := filepath.Join(staging, source.ArchiveRootName(o.project, version))
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return "", o.fail(rerrors.NewWithContext(rerrors.ErrCodeExtraction,
			"archive does not contain the expected root directory",
			map[string]any{"root": filepath.Base(root)}))
	}
	dest := filepath.Join(o.workDir, o.recipe.Spec.Name)
	if err := os.RemoveAll(dest); err != nil {
		return "", o.fail(rerrors.Wrap(rerrors.ErrCodeExtraction, "failed to clear source directory", err))
	}
	if err := os.Rename(root, dest); err != nil {
		return "", o.fail(rerrors.Wrap(rerrors.ErrCodeExtraction, "failed to rename extracted root", err))
	}
	_ = os.RemoveAll(staging)

	o.source = artifact.SourceEntry{URL: url, Hash: sum}
	if o.resolveCommit {
		sha, err := source.GetCommitSHAForRef(ctx, o.project.Owner, o.project.Repo, version)
		if err != nil {
			o.logger.Warn("could not resolve commit for tag", "version", version, "error", err)
		} else {
			o.source.Commit = sha
		}
	}
	o.version = version
	o.recipe.Spec.Version = version
	o.transition(StateFetched)
	return dest, nil
}

// ApplyPatches applies the recipe's patch rules to sourceDir. Rules whose
// predicate does not match or whose search text is absent are skipped.
func (o *Orchestrator) ApplyPatches(sourceDir, hostOS, compilerStd string) ([]patch.Result, error) {
	if err := o.require("ApplyPatches", StateFetched); err != nil {
		return nil, err
	}
	results, err := patch.Apply(sourceDir, o.recipe.Patches, patch.Env{HostOS: hostOS, CompilerStd: compilerStd})
	if err != nil {
		return results, o.fail(rerrors.WrapWithContext(rerrors.ErrCodeExtraction,
			"source tree could not be patched", err, map[string]any{"source_dir": sourceDir}))
	}
	for _, res := range results {
		if res.Outcome == patch.Applied {
			o.logger.Info("patch applied", "rule", res.Rule, "file", res.File)
		}
	}
	o.transition(StatePatched)
	return results, nil
}

// BuildConfig derives the build configuration from the recipe's options,
// dependency hints, build type and policy.
func (o *Orchestrator) BuildConfig() buildconfig.Config {
	return buildconfig.Derive(buildconfig.FromRecipe(o.recipe))
}

func (o *Orchestrator) buildType(cfg buildconfig.Config) string {
	if bt := cfg["CMAKE_BUILD_TYPE"]; bt != "" {
		return bt
	}
	return o.recipe.Settings.BuildType
}

// ConfigureAndBuild configures sourceDir with cfg, compiles it and, when
// runTests is set, runs the test suite. The test step is never issued
// otherwise.
func (o *Orchestrator) ConfigureAndBuild(ctx context.Context, sourceDir string, cfg buildconfig.Config, runTests bool) (BuildOutput, error) {
	if err := o.require("ConfigureAndBuild", StatePatched); err != nil {
		return BuildOutput{}, err
	}
	out := BuildOutput{
		SourceDir: sourceDir,
		BuildDir:  filepath.Join(o.workDir, "build"),
		BuildType: o.buildType(cfg),
		Config:    cfg,
	}

	if o.recipe.BuildTool != "" {
		v, err := o.tool.CheckVersion(ctx, o.recipe.BuildTool)
		if err != nil {
			return out, o.fail(rerrors.Wrap(rerrors.ErrCodeBuildFailure, "unsupported build tool", err))
		}
		o.logger.Debug("build tool version", "cmake", v.String())
	}

	res, err := o.tool.Configure(ctx, sourceDir, out.BuildDir, cfg)
	if err := stepError(rerrors.ErrCodeBuildFailure, "configure", res, err); err != nil {
		return out, o.fail(err)
	}
	o.transition(StateConfigured)

	res, err = o.tool.Build(ctx, out.BuildDir, out.BuildType)
	if err := stepError(rerrors.ErrCodeBuildFailure, "build", res, err); err != nil {
		return out, o.fail(err)
	}
	o.transition(StateBuilt)

	if runTests {
		res, err = o.tool.Test(ctx, out.BuildDir, out.BuildType)
		if err := stepError(rerrors.ErrCodeTestFailure, "test", res, err); err != nil {
			return out, o.fail(err)
		}
		out.Tested = true
		o.transition(StateTested)
	}
	return out, nil
}

// Install reconfigures the build for prefix, runs the install target, copies
// license files and writes the package manifest. checksums.txt records only
// the files this install produced.
func (o *Orchestrator) Install(ctx context.Context, out BuildOutput, prefix string) (artifact.Descriptor, error) {
	if o.state != StateBuilt && o.state != StateTested {
		return artifact.Descriptor{}, rerrors.NewWithContext(rerrors.ErrCodeInvalidRequest,
			"Install called out of order", map[string]any{"state": o.state, "required": StateBuilt})
	}
	prefix, err := filepath.Abs(prefix)
	if err != nil {
		return artifact.Descriptor{}, o.fail(rerrors.Wrap(rerrors.ErrCodeInstallFailure, "invalid install prefix", err))
	}

	before, err := artifact.Snapshot(prefix)
	if err != nil {
		return artifact.Descriptor{}, o.fail(rerrors.Wrap(rerrors.ErrCodeInstallFailure, "failed to scan install prefix", err))
	}

	cfg := out.Config.With("CMAKE_INSTALL_PREFIX", prefix)
	res, err := o.tool.Configure(ctx, out.SourceDir, out.BuildDir, cfg)
	if err := stepError(rerrors.ErrCodeInstallFailure, "configure", res, err); err != nil {
		return artifact.Descriptor{}, o.fail(err)
	}
	res, err = o.tool.Install(ctx, out.BuildDir, out.BuildType)
	if err := stepError(rerrors.ErrCodeInstallFailure, "install", res, err); err != nil {
		return artifact.Descriptor{}, o.fail(err)
	}

	if err := os.MkdirAll(prefix, 0755); err != nil {
		return artifact.Descriptor{}, o.fail(rerrors.Wrap(rerrors.ErrCodeInstallFailure, "failed to create install prefix", err))
	}
	recorded, err := artifact.ReadInstallManifest(out.BuildDir, prefix)
	if err != nil {
		return artifact.Descriptor{}, o.fail(rerrors.Wrap(rerrors.ErrCodeInstallFailure, "failed to read installed files", err))
	}
	licenses, err := artifact.CopyLicenses(out.SourceDir, filepath.Join(prefix, artifact.LicensesDir), o.recipe.LicensePattern)
	if err != nil {
		return artifact.Descriptor{}, o.fail(rerrors.Wrap(rerrors.ErrCodeInstallFailure, "failed to package licenses", err))
	}
	recorded = append(recorded, licenses...)
	recorded = append(recorded, artifact.ManifestPath(prefix))

	r := o.recipe
	r.Settings.BuildType = out.BuildType
	desc := artifact.NewDescriptor(r, prefix)
	if err := artifact.Save(prefix, artifact.New(r, o.source, desc)); err != nil {
		return desc, o.fail(rerrors.Wrap(rerrors.ErrCodeInstallFailure, "failed to write package manifest", err))
	}
	// Files that were in the prefix before and that the install did not
	// write stay out of checksums.txt so remove leaves them alone.
	files, err := artifact.InstalledFiles(prefix, before, recorded)
	if err == nil {
		err = artifact.GenerateChecksums(ctx, prefix, files)
	}
	if err != nil {
		return desc, o.fail(rerrors.Wrap(rerrors.ErrCodeInstallFailure, "failed to write checksums", err))
	}

	o.transition(StateInstalled)
	return desc, nil
}

// Run executes the whole pipeline for the recipe's version and settings and
// installs into prefix. Tests run when the build_tests option is set.
func (o *Orchestrator) Run(ctx context.Context, prefix string) (artifact.Descriptor, error) {
	o.reset()
	s := o.recipe.Settings

	dir, err := o.FetchSource(ctx, o.recipe.Spec.Version, s.OS)
	if err != nil {
		return artifact.Descriptor{}, err
	}
	if _, err := o.ApplyPatches(dir, s.OS, s.CompilerStd); err != nil {
		return artifact.Descriptor{}, err
	}
	out, err := o.ConfigureAndBuild(ctx, dir, o.BuildConfig(), o.recipe.Options.BuildTests)
	if err != nil {
		return artifact.Descriptor{}, err
	}
	return o.Install(ctx, out, prefix)
}

// stepError maps a runner outcome to code. Non-zero exit status and failure
// to run are both fatal.
func stepError(code rerrors.ErrorCode, step string, res runner.Result, err error) error {
	if err != nil {
		return rerrors.WrapWithContext(code, step+" step could not run", err, map[string]any{"step": step})
	}
	if !res.Success() {
		return rerrors.NewWithContext(code, step+" step failed",
			map[string]any{"step": step, "exit_code": res.ExitCode})
	}
	return nil
}
