// Package cmake drives the CMake and CTest command line tools.
package cmake

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/nightconcept/nativepkg/internal/core/buildconfig"
	"github.com/nightconcept/nativepkg/internal/core/runner"
)

var versionRegex = regexp.MustCompile(`cmake version (\d+\.\d+(?:\.\d+)?)`)

// Tool issues configure, build, test and install steps through a runner.
type Tool struct {
	Runner runner.Runner
	CMake  string
	CTest  string
	// Generator is passed as -G when set.
	Generator string
	// Jobs is passed as --parallel when positive.
	Jobs int
}

// New returns a Tool using cmake and ctest from PATH.
func New(r runner.Runner) *Tool {
	return &Tool{Runner: r, CMake: "cmake", CTest: "ctest"}
}

// Version runs `cmake --version` and parses the reported version.
func (t *Tool) Version(ctx context.Context) (*semver.Version, error) {
	res, err := t.Runner.Run(ctx, runner.Command{Name: t.CMake, Args: []string{"--version"}})
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, fmt.Errorf("%s --version exited with status %d", t.CMake, res.ExitCode)
	}
	m := versionRegex.FindSubmatch(res.Output)
	if m == nil {
		return nil, fmt.Errorf("could not find a version in '%s --version' output", t.CMake)
	}
	v, err := semver.NewVersion(string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse cmake version '%s': %w", m[1], err)
	}
	return v, nil
}

// CheckVersion fails unless the installed cmake satisfies constraint.
func (t *Tool) CheckVersion(ctx context.Context, constraint string) (*semver.Version, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid cmake version constraint '%s': %w", constraint, err)
	}
	v, err := t.Version(ctx)
	if err != nil {
		return nil, err
	}
	if !c.Check(v) {
		return v, fmt.Errorf("cmake %s does not satisfy '%s'", v, constraint)
	}
	return v, nil
}

// ConfigureCommand builds the configure invocation.
func (t *Tool) ConfigureCommand(sourceDir, buildDir string, cfg buildconfig.Config) runner.Command {
	args := []string{"-S", sourceDir, "-B", buildDir}
	if t.Generator != "" {
		args = append(args, "-G", t.Generator)
	}
	args = append(args, cfg.Args()...)
	return runner.Command{Name: t.CMake, Args: args}
}

// BuildCommand builds the compile invocation; target may be empty.
func (t *Tool) BuildCommand(buildDir, buildType, target string) runner.Command {
	args := []string{"--build", buildDir}
	if buildType != "" {
		args = append(args, "--config", buildType)
	}
	if target != "" {
		args = append(args, "--target", target)
	}
	if t.Jobs > 0 {
		args = append(args, "--parallel", fmt.Sprint(t.Jobs))
	}
	return runner.Command{Name: t.CMake, Args: args}
}

// TestCommand builds the ctest invocation, run from inside buildDir.
func (t *Tool) TestCommand(buildDir, buildType string) runner.Command {
	args := []string{"--output-on-failure"}
	if buildType != "" {
		args = append(args, "-C", buildType)
	}
	return runner.Command{Name: t.CTest, Args: args, Dir: buildDir}
}

// Configure runs the configure step.
func (t *Tool) Configure(ctx context.Context, sourceDir, buildDir string, cfg buildconfig.Config) (runner.Result, error) {
	return t.Runner.Run(ctx, t.ConfigureCommand(sourceDir, buildDir, cfg))
}

// Build runs the compile step.
func (t *Tool) Build(ctx context.Context, buildDir, buildType string) (runner.Result, error) {
	return t.Runner.Run(ctx, t.BuildCommand(buildDir, buildType, ""))
}

// Test runs the project's test suite.
func (t *Tool) Test(ctx context.Context, buildDir, buildType string) (runner.Result, error) {
	return t.Runner.Run(ctx, t.TestCommand(buildDir, buildType))
}

// Install builds the install target.
func (t *Tool) Install(ctx context.Context, buildDir, buildType string) (runner.Result, error) {
	return t.Runner.Run(ctx, t.BuildCommand(buildDir, buildType, "install"))
}
