// Package archive builds and reads tar byte streams for container file
// transfer and image build contexts.
package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PackFile creates a tar archive containing a single file. If name is empty
// the file's base name is used as the archive member name.
func PackFile(path string, name string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, use PackDir", path)
	}
	if name == "" {
		name = filepath.Base(path)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeFile(tw, path, name, info); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// PackDir creates a tar archive of a directory tree. The directory itself
// appears in the archive under name (default: its base name) and every
// entry below it keeps its relative path.
func PackDir(path string, name string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return packTree(path, name)
}

// PackDirContents creates a tar archive of everything inside a directory,
// with member names relative to the directory itself. This is the layout
// the engine expects for an image build context.
func PackDirContents(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return packTree(path, "")
}

func packTree(root string, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if prefix != "" {
			if name == "." {
				name = prefix
			} else {
				name = prefix + "/" + name
			}
		} else if name == "." {
			// Contents-only archives have no entry for the root itself.
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = name + "/"
			return tw.WriteHeader(hdr)
		}
		if !info.Mode().IsRegular() {
			// Sockets, devices etc. have no place in an upload archive.
			return nil
		}
		return writeFile(tw, p, name, info)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", root, err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFile(tw *tar.Writer, path, name string, info fs.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", path, err)
	}
	hdr.Name = name

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Unpack extracts a tar archive into dest, creating it if needed. When
// member is non-empty only that entry is extracted; an unknown member is
// an error.
func Unpack(data []byte, dest string, member string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	tr := tar.NewReader(bytes.NewReader(data))
	found := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
		name := strings.TrimSuffix(hdr.Name, "/")
		if member != "" && name != member && !strings.HasPrefix(name, member+"/") {
			continue
		}
		found = true

		target, err := safeJoin(dest, name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode)|0o700); err != nil {
				return fmt.Errorf("failed to create %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode))
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", target, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("failed to extract %s: %w", name, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", target, err)
			}
		default:
			// Links and special files are skipped rather than rejected:
			// engine archives occasionally carry them.
		}
	}
	if member != "" && !found {
		return fmt.Errorf("member %s not found in archive", member)
	}
	return nil
}

// ListMembers returns the member names of a tar archive in order.
func ListMembers(data []byte) ([]string, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		names = append(names, strings.TrimSuffix(hdr.Name, "/"))
	}
	return names, nil
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member %s escapes destination", name)
	}
	return target, nil
}
