package build

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/nightconcept/nativepkg/internal/core/artifact"
	"github.com/nightconcept/nativepkg/internal/core/runner"
)

func ceresServer(t *testing.T) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"CMakeLists.txt": "cmake_policy(VERSION 2.8)\n",
		"LICENSE":        "BSD\n",
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: "ceres-solver-1.14.0/" + name, Mode: 0644, Size: int64(len(body))}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	tarball := buf.Bytes()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/archive/1.14.0.tar.gz") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(tarball)
	}))
	t.Cleanup(server.Close)
	return server
}

// fakeTools stands in for cmake and ctest. It writes a line per command to
// the stream, like the real tools would, and fails commands matching failOn.
type fakeTools struct {
	failOn   string
	commands []runner.Command
}

func (f *fakeTools) runner(stream io.Writer) runner.Runner {
	return runner.Func(func(_ context.Context, cmd runner.Command) (runner.Result, error) {
		f.commands = append(f.commands, cmd)
		if stream != nil {
			_, _ = io.WriteString(stream, "-- "+cmd.String()+"\n")
		}
		if len(cmd.Args) == 1 && cmd.Args[0] == "--version" {
			return runner.Result{Output: []byte("cmake version 3.27.4\n")}, nil
		}
		if f.failOn != "" && strings.Contains(cmd.String(), f.failOn) {
			return runner.Result{ExitCode: 2}, nil
		}
		return runner.Result{}, nil
	})
}

func runBuild(t *testing.T, tools *fakeTools, args ...string) (string, error) {
	t.Helper()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	originalRunner := newRunner
	newRunner = tools.runner
	defer func() {
		newRunner = originalRunner
		_ = os.Chdir(originalWD)
	}()
	t.Setenv("NO_COLOR", "1")

	var out bytes.Buffer
	app := &cli.App{
		Name:           "npkg",
		Writer:         &out,
		Commands:       []*cli.Command{NewBuildCommand()},
		ExitErrHandler: func(*cli.Context, error) {},
	}
	err = app.Run(append([]string{"npkg", "build"}, args...))
	return out.String(), err
}

func TestBuildCommand_Installs(t *testing.T) {
	server := ceresServer(t)
	prefix := filepath.Join(t.TempDir(), "ceres")
	tools := &fakeTools{}

	out, err := runBuild(t, tools, "--os", "linux", "--prefix", prefix, "--workdir", t.TempDir(),
		"--archive-base-url", server.URL, "-j", "8")
	require.NoError(t, err)

	assert.Contains(t, out, "Success: ceres-solver@1.14.0 installed to "+prefix)
	assert.Contains(t, out, "libs:         ceres\n")
	assert.Contains(t, out, "-- cmake --build", "tool output is streamed")
	for _, c := range tools.commands {
		assert.NotEqual(t, "ctest", c.Name)
	}
	assert.Contains(t, tools.commands[2].Args, "--parallel")

	m, err := artifact.Load(prefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"ceres"}, m.Artifact.Libs)
	assert.FileExists(t, filepath.Join(prefix, "licenses", "LICENSE"))
}

func TestBuildCommand_DebugWithTests(t *testing.T) {
	server := ceresServer(t)
	prefix := filepath.Join(t.TempDir(), "ceres")
	tools := &fakeTools{}

	out, err := runBuild(t, tools, "--os", "linux", "-t", "Debug", "--build-tests", "--quiet",
		"--prefix", prefix, "--workdir", t.TempDir(), "--archive-base-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "libs:         ceres-debug\n")
	assert.NotContains(t, out, "-- cmake", "--quiet suppresses tool output")

	ranTests := false
	for _, c := range tools.commands {
		if c.Name == "ctest" {
			ranTests = true
		}
	}
	assert.True(t, ranTests)
}

func TestBuildCommand_CompileFailure(t *testing.T) {
	server := ceresServer(t)
	prefix := filepath.Join(t.TempDir(), "ceres")
	tools := &fakeTools{failOn: "--build"}

	_, err := runBuild(t, tools, "--os", "linux", "--prefix", prefix, "--workdir", t.TempDir(), "--archive-base-url", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUILD_FAILURE")
	assert.Contains(t, err.Error(), "exit_code=2")
	assert.NoFileExists(t, artifact.ManifestPath(prefix))
}

func TestBuildCommand_RequiresPrefix(t *testing.T) {
	_, err := runBuild(t, &fakeTools{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix")
}
