package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nightconcept/nativepkg/internal/core/hasher"
)

// ChecksumFileName is the checksum list written into an install prefix.
const ChecksumFileName = "checksums.txt"

// LicensesDir is the directory under the prefix that receives license files.
const LicensesDir = "licenses"

// InstallManifestName is the list of installed files CMake writes into the build directory.
const InstallManifestName = "install_manifest.txt"

// IsLicenseFile reports whether name's base starts with pattern, ignoring case.
func IsLicenseFile(name, pattern string) bool {
	return strings.HasPrefix(strings.ToLower(filepath.Base(name)), strings.ToLower(pattern))
}

// CopyLicenses copies every file under srcDir whose base name starts with
// pattern (case-insensitive) into dstDir, keeping its path relative to srcDir.
// It returns the copied destination paths.
func CopyLicenses(srcDir, dstDir, pattern string) ([]string, error) {
	var copied []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !IsLicenseFile(d.Name(), pattern) {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)
		if err := copyFile(path, target); err != nil {
			return err
		}
		copied = append(copied, target)
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("failed to copy license files from %s: %w", srcDir, err)
	}
	slog.Debug("license files copied", "count", len(copied), "dest", dstDir)
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// ListFiles returns the regular files under dir, sorted, skipping the checksum file itself.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if path == filepath.Join(dir, ChecksumFileName) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files under %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Snapshot returns the set of regular files under dir. A missing dir is empty.
func Snapshot(dir string) (map[string]bool, error) {
	files, err := ListFiles(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	return set, nil
}

// ReadInstallManifest returns the absolute paths listed in buildDir's
// install_manifest.txt that lie inside prefix. Entries outside prefix are
// logged and dropped. A build without a manifest yields no files.
func ReadInstallManifest(buildDir, prefix string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(buildDir, InstallManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read install manifest: %w", err)
	}
	var files []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		path := filepath.Clean(filepath.FromSlash(line))
		if !filepath.IsAbs(path) {
			path = filepath.Join(prefix, path)
		}
		if !within(prefix, path) {
			slog.Warn("installed file outside prefix not recorded", "path", path, "prefix", prefix)
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// InstalledFiles returns the regular files under prefix that an install
// produced: every file absent from before, plus the files in recorded that
// exist now. Files present before and not recorded belong to someone else.
func InstalledFiles(prefix string, before map[string]bool, recorded []string) ([]string, error) {
	current, err := ListFiles(prefix)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(recorded))
	for _, f := range recorded {
		keep[filepath.Clean(f)] = true
	}
	files := make([]string, 0, len(current))
	for _, f := range current {
		if keep[f] || !before[f] {
			files = append(files, f)
		}
	}
	return files, nil
}

// within reports whether path lies strictly below root. Both must be clean.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// GenerateChecksums writes checksums.txt into dir with one "<sha256>  <relpath>"
// line per file, in the order given. Paths are relative to dir and use forward
// slashes. Files are hashed concurrently.
func GenerateChecksums(ctx context.Context, dir string, files []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	sums := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := hasher.HashFile(file)
			if err != nil {
				return err
			}
			sums[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lines := make([]string, 0, len(files))
	for i, file := range files {
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			rel = file
		}
		lines = append(lines, fmt.Sprintf("%s  %s", sums[i], filepath.ToSlash(rel)))
	}

	path := filepath.Join(dir, ChecksumFileName)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write checksums: %w", err)
	}
	slog.Debug("checksums generated", "file_count", len(lines), "path", path)
	return nil
}

// ReadChecksums parses checksums.txt in dir into relative path -> digest.
func ReadChecksums(dir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ChecksumFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}
	sums := make(map[string]string)
	for i, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		sum, rel, ok := strings.Cut(line, "  ")
		if !ok {
			return nil, fmt.Errorf("malformed checksum line %d: %q", i+1, line)
		}
		sums[rel] = sum
	}
	return sums, nil
}

// VerifyChecksums reports the files listed in checksums.txt that are missing or modified.
func VerifyChecksums(dir string) ([]string, error) {
	sums, err := ReadChecksums(dir)
	if err != nil {
		return nil, err
	}
	var bad []string
	for rel, want := range sums {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if !within(dir, path) {
			bad = append(bad, rel)
			continue
		}
		got, err := hasher.HashFile(path)
		if err != nil || got != want {
			bad = append(bad, rel)
		}
	}
	sort.Strings(bad)
	return bad, nil
}

// RemoveInstalled deletes every file recorded in prefix's checksums.txt plus the
// checksum list and manifest, then prunes directories left empty. Files not
// recorded are left alone. A recorded path outside prefix aborts the removal
// before anything is deleted. It returns the number of files removed.
func RemoveInstalled(prefix string) (int, error) {
	prefix, err := filepath.Abs(prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve prefix: %w", err)
	}
	sums, err := ReadChecksums(prefix)
	if err != nil {
		return 0, err
	}
	paths := make([]string, 0, len(sums)+2)
	for rel := range sums {
		p := filepath.Join(prefix, filepath.FromSlash(rel))
		if !within(prefix, p) {
			return 0, fmt.Errorf("refusing to remove %s: outside %s", rel, prefix)
		}
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(prefix, ChecksumFileName), ManifestPath(prefix))

	removed := 0
	dirs := make(map[string]bool)
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to remove %s: %w", p, err)
		}
		removed++
		for d := filepath.Dir(p); within(prefix, d); d = filepath.Dir(d) {
			dirs[d] = true
		}
	}

	// Deepest first so parents are empty by the time they are visited.
	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	for _, d := range ordered {
		_ = os.Remove(d)
	}
	slog.Debug("installed files removed", "prefix", prefix, "count", removed)
	return removed, nil
}
