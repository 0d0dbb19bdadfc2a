// Package attachment stores applicant uploads in a local directory.
package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cyberwise/portal/internal/ids"
)

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/uploads/"

var (
	ErrTooLarge    = errors.New("file exceeds the upload size limit")
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
)

type Saved struct {
	Name string
	URL  string
	MIME string
	Size int64
}

type Store struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save sniffs, size-checks and writes r under a fresh name. Nothing is left on
// disk when Save fails.
func (s *Store) Save(ctx context.Context, originalName string, r io.Reader) (Saved, error) {
	if err := ctx.Err(); err != nil {
		return Saved{}, err
	}

	mime, head, err := Detect(r, originalName)
	if err != nil {
		return Saved{}, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Saved{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(tmp, io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		cleanup()
		return Saved{}, fmt.Errorf("write upload: %w", err)
	}
	if written > s.maxBytes {
		cleanup()
		return Saved{}, ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Saved{}, fmt.Errorf("close upload: %w", err)
	}

	name := ids.New() + strings.ToLower(filepath.Ext(originalName))
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return Saved{}, fmt.Errorf("store upload: %w", err)
	}

	return Saved{Name: name, URL: URLPrefix + name, MIME: mime, Size: written}, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Open returns a stored file for reading.
func (s *Store) Open(name string) (*os.File, fs.FileInfo, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

// NameFromURL extracts the stored file name from a URL produced by Save.
func NameFromURL(url string) (string, bool) {
	name, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || validName(name) != nil {
		return "", false
	}
	return name, true
}

// SweepOrphans removes files older than maxAge whose names are not in keep.
func (s *Store) SweepOrphans(ctx context.Context, keep map[string]struct{}, maxAge time.Duration) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	var removed []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if _, ok := keep[entry.Name()]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}

func (s *Store) path(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// validName accepts a single path element only.
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) ||
		strings.HasPrefix(name, ".") || filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}
