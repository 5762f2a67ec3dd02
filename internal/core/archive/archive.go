// Package archive unpacks source archives (.tar.gz and .zip) into a directory.
package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// Supported archive extensions.
const (
	ExtTarGz = ".tar.gz"
	ExtZip   = ".zip"
)

// Extract unpacks data, an archive of kind ext, into dest.
// Entries that would land outside dest are rejected.
func Extract(data []byte, ext, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create extraction directory %s: %w", dest, err)
	}
	switch ext {
	case ExtTarGz:
		return extractTarGz(bytes.NewReader(data), dest)
	case ExtZip:
		return extractZip(data, dest)
	default:
		return fmt.Errorf("unsupported archive format '%s'", ext)
	}
}

// safeJoin resolves name under dest, refusing absolute paths, parent
// traversal and paths that pass through a symlink already on disk.
func safeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("archive entry '%s' has an absolute path", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	root := filepath.Clean(dest)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry '%s' escapes the extraction directory", name)
	}
	if err := noSymlinkBelow(root, target, name); err != nil {
		return "", err
	}
	return target, nil
}

// noSymlinkBelow fails when any existing component of target below root,
// target included, is a symlink. Links extracted earlier must not redirect
// later entries.
func noSymlinkBelow(root, target, name string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." {
		return err
	}
	cur := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("archive entry '%s' passes through symlink '%s'", name, cur)
		}
	}
	return nil
}

func extractTarGz(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	entries := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}
		// GitHub archives carry the commit id in a pax global header.
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if !withinRoot(dest, filepath.Dir(target), hdr.Linkname) {
				return fmt.Errorf("symlink '%s' points outside the extraction directory", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", target, err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink %s: %w", target, err)
			}
		default:
			continue
		}
		entries++
	}
	if entries == 0 {
		return fmt.Errorf("archive is empty")
	}
	return nil
}

// withinRoot reports whether link, relative to dir, resolves inside root.
func withinRoot(root, dir, link string) bool {
	if filepath.IsAbs(link) {
		return false
	}
	resolved := filepath.Join(dir, filepath.FromSlash(link))
	clean := filepath.Clean(root)
	return resolved == clean || strings.HasPrefix(resolved, clean+string(os.PathSeparator))
}

func extractZip(data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	if len(zr.File) == 0 {
		return fmt.Errorf("archive is empty")
	}

	for _, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
		}
		perm := f.Mode().Perm()
		if perm == 0 {
			perm = 0644
		}
		err = writeFile(target, rc, perm)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm|0200)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return out.Close()
}
