package info

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/nightconcept/nativepkg/internal/core/artifact"
	"github.com/nightconcept/nativepkg/internal/core/recipe"
)

// installFixture writes what a successful 'npkg build' leaves in a prefix.
func installFixture(t *testing.T, buildType string) string {
	t.Helper()
	prefix := t.TempDir()
	r := recipe.Ceres()
	r.Settings = recipe.Settings{OS: "linux", Arch: "amd64", Compiler: "gcc", CompilerStd: "17", BuildType: buildType}

	// The prefix is shared with a library npkg did not install.
	unrelated := filepath.Join(prefix, "lib", "libunrelated.so")
	require.NoError(t, os.MkdirAll(filepath.Dir(unrelated), 0755))
	require.NoError(t, os.WriteFile(unrelated, []byte("ELF"), 0644))
	before, err := artifact.Snapshot(prefix)
	require.NoError(t, err)

	for rel, body := range map[string]string{
		"include/ceres/ceres.h": "#pragma once\n",
		"lib/libceres.a":        "!<arch>\n",
		"licenses/LICENSE":      "BSD\n",
	} {
		path := filepath.Join(prefix, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}

	src := artifact.SourceEntry{
		URL:  "https://github.com/ceres-solver/ceres-solver/archive/1.14.0.tar.gz",
		Hash: "sha256:cfcf9c4aa3283805ed65539af9d00b69a0b35687b98eab6c205ab5bcce29df09",
	}
	require.NoError(t, artifact.Save(prefix, artifact.New(r, src, artifact.NewDescriptor(r, prefix))))
	files, err := artifact.InstalledFiles(prefix, before, nil)
	require.NoError(t, err)
	require.NoError(t, artifact.GenerateChecksums(context.Background(), prefix, files))
	return prefix
}

func runInfo(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var out bytes.Buffer
	app := &cli.App{
		Name:           "npkg",
		Writer:         &out,
		Commands:       []*cli.Command{InfoCmd},
		ExitErrHandler: func(*cli.Context, error) {},
	}
	err := app.Run(append([]string{"npkg", "info"}, args...))
	return out.String(), err
}

func TestInfoCommand_Text(t *testing.T) {
	prefix := installFixture(t, "Debug")
	out, err := runInfo(t, "--prefix", prefix)
	require.NoError(t, err)

	assert.Contains(t, out, "ceres-solver@1.14.0 "+prefix)
	assert.Contains(t, out, "platform linux/amd64 gcc c++17")
	assert.Contains(t, out, "build_type Debug")
	assert.Contains(t, out, "gflags:nothreads false")
	assert.Contains(t, out, "eigen 3.3.7")
	assert.Contains(t, out, "libs ceres-debug")
	assert.Contains(t, out, "all files match checksums.txt")
}

func TestInfoCommand_Tampered(t *testing.T) {
	prefix := installFixture(t, "Release")
	require.NoError(t, os.Remove(filepath.Join(prefix, "lib", "libceres.a")))

	out, err := runInfo(t, "--prefix", prefix)
	require.NoError(t, err)
	assert.Contains(t, out, "modified or missing lib/libceres.a")
}

func TestInfoCommand_IgnoresUnrecordedFiles(t *testing.T) {
	prefix := installFixture(t, "Release")
	require.NoError(t, os.WriteFile(filepath.Join(prefix, "lib", "libunrelated.so"), []byte("upgraded"), 0644))

	sums, err := artifact.ReadChecksums(prefix)
	require.NoError(t, err)
	assert.Contains(t, sums, "lib/libceres.a")
	assert.NotContains(t, sums, "lib/libunrelated.so")

	out, err := runInfo(t, "--prefix", prefix)
	require.NoError(t, err)
	assert.Contains(t, out, "all files match checksums.txt")
}

func TestInfoCommand_JSON(t *testing.T) {
	prefix := installFixture(t, "Release")
	out, err := runInfo(t, "--prefix", prefix, "--format", "json")
	require.NoError(t, err)

	var m artifact.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "ceres-solver", m.Package.Name)
	assert.Equal(t, []string{"ceres"}, m.Artifact.Libs)
	assert.Equal(t, "glog", m.Dependencies["glog"].Name)
}

func TestInfoCommand_YAML(t *testing.T) {
	prefix := installFixture(t, "Release")
	out, err := runInfo(t, "--prefix", prefix, "--format", "yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	pkg, ok := doc["package"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.14.0", pkg["version"])
	a, ok := doc["artifact"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"ceres"}, a["libs"])
}

func TestInfoCommand_NotInstalled(t *testing.T) {
	_, err := runInfo(t, "--prefix", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "npkg-package.toml not found")
}

func TestInfoCommand_BadFormat(t *testing.T) {
	_, err := runInfo(t, "--prefix", installFixture(t, "Release"), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
