package cmake_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightconcept/nativepkg/internal/core/buildconfig"
	"github.com/nightconcept/nativepkg/internal/core/cmake"
	"github.com/nightconcept/nativepkg/internal/core/runner"
)

func fixedOutput(out string, code int) runner.Func {
	return func(_ context.Context, _ runner.Command) (runner.Result, error) {
		return runner.Result{ExitCode: code, Output: []byte(out)}, nil
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()
	tool := cmake.New(fixedOutput("cmake version 3.22.1\n\nCMake suite maintained and supported by Kitware (kitware.com/cmake).\n", 0))

	v, err := tool.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.22.1", v.String())
}

func TestVersion_Unparseable(t *testing.T) {
	t.Parallel()
	_, err := cmake.New(fixedOutput("garbage", 0)).Version(context.Background())
	assert.ErrorContains(t, err, "could not find a version")

	_, err = cmake.New(fixedOutput("", 127)).Version(context.Background())
	assert.ErrorContains(t, err, "exited with status 127")

	failing := runner.Func(func(context.Context, runner.Command) (runner.Result, error) {
		return runner.Result{ExitCode: -1}, errors.New("failed to start cmake")
	})
	_, err = cmake.New(failing).Version(context.Background())
	assert.ErrorContains(t, err, "failed to start cmake")
}

func TestCheckVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		output  string
		wantErr bool
	}{
		{output: "cmake version 3.14.4", wantErr: false},
		{output: "cmake version 3.28.3", wantErr: false},
		{output: "cmake version 3.10.2", wantErr: true},
		{output: "cmake version 3.14", wantErr: true},
	}
	for _, tt := range tests {
		_, err := cmake.New(fixedOutput(tt.output, 0)).CheckVersion(context.Background(), ">= 3.14.4")
		if tt.wantErr {
			assert.Error(t, err, tt.output)
			continue
		}
		assert.NoError(t, err, tt.output)
	}
}

func TestCheckVersion_InvalidConstraint(t *testing.T) {
	t.Parallel()
	_, err := cmake.New(fixedOutput("cmake version 3.22.1", 0)).CheckVersion(context.Background(), "~~3")
	assert.ErrorContains(t, err, "invalid cmake version constraint")
}

func TestCommands(t *testing.T) {
	t.Parallel()
	tool := cmake.New(nil)
	tool.Generator = "Ninja"
	tool.Jobs = 4

	configure := tool.ConfigureCommand("/w/ceres-solver", "/w/build", buildconfig.Config{"BUILD_TESTING": "OFF", "CXSPARSE": "OFF"})
	assert.Equal(t, "cmake", configure.Name)
	assert.Equal(t, []string{"-S", "/w/ceres-solver", "-B", "/w/build", "-G", "Ninja", "-DBUILD_TESTING=OFF", "-DCXSPARSE=OFF"}, configure.Args)

	build := tool.BuildCommand("/w/build", "Release", "")
	assert.Equal(t, []string{"--build", "/w/build", "--config", "Release", "--parallel", "4"}, build.Args)

	install := tool.BuildCommand("/w/build", "Debug", "install")
	assert.Equal(t, []string{"--build", "/w/build", "--config", "Debug", "--target", "install", "--parallel", "4"}, install.Args)

	test := tool.TestCommand("/w/build", "Release")
	assert.Equal(t, "ctest", test.Name)
	assert.Equal(t, "/w/build", test.Dir)
	assert.Equal(t, []string{"--output-on-failure", "-C", "Release"}, test.Args)
}
