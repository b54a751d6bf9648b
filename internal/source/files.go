// Package source enumerates input files (plain files, directories, zip
// archives) and runs pre-flight validation on them.
package source

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one input file: its on-disk path plus the display name recorded
// into the destination's provenance column.
type File struct {
	Path string
	Name string
}

// FileSet is the resolved list of files for one load, plus any scratch
// directory created while expanding an archive. Close removes the scratch
// directory and must be called on every exit path.
type FileSet struct {
	Files   []File
	scratch string
}

// Close removes the scratch extraction directory, if any.
func (s *FileSet) Close() error {
	if s.scratch == "" {
		return nil
	}
	dir := s.scratch
	s.scratch = ""
	return os.RemoveAll(dir)
}

// Resolve expands a source path into a flat, lexicographically ordered
// file list. A single .zip file is extracted to a scratch directory; a
// directory is walked recursively. Hidden (dot-prefixed) files are
// skipped. include, when non-empty, keeps only files with the given
// extensions (leading dot optional).
func Resolve(path string, include []string) (*FileSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}

	set := &FileSet{}
	if info.IsDir() {
		set.Files, err = walkDir(path)
		if err != nil {
			return nil, err
		}
	} else if strings.EqualFold(filepath.Ext(path), ".zip") {
		scratch, err := os.MkdirTemp("", "dcx-extract-*")
		if err != nil {
			return nil, fmt.Errorf("create scratch dir: %w", err)
		}
		set.scratch = scratch
		if err := extractZip(path, scratch); err != nil {
			set.Close()
			return nil, err
		}
		set.Files, err = walkDir(scratch)
		if err != nil {
			set.Close()
			return nil, err
		}
	} else {
		set.Files = []File{{Path: path, Name: filepath.Base(path)}}
	}

	if len(include) > 0 {
		set.Files = filterExtensions(set.Files, include)
	}
	return set, nil
}

func walkDir(root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		files = append(files, File{Path: path, Name: d.Name()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func extractZip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target := filepath.Join(dest, filepath.Clean(entry.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %q escapes extraction dir", entry.Name)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", entry.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
		if err := extractFile(entry, target); err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
	}
	return nil
}

func extractFile(entry *zip.File, target string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func filterExtensions(files []File, include []string) []File {
	allowed := make(map[string]bool, len(include))
	for _, ext := range include {
		allowed["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	var kept []File
	for _, f := range files {
		if allowed[strings.ToLower(filepath.Ext(f.Name))] {
			kept = append(kept, f)
		}
	}
	return kept
}
