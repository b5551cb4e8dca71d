// Package settings persists the per content type hierarchy settings in a
// YAML file and keeps an in-memory copy current.
package settings

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/hierarchy/internal/apperr"
	"github.com/starford/hierarchy/internal/checksum"
	"github.com/starford/hierarchy/internal/models"
)

// CurrentVersion is stamped on every saved settings file.
const CurrentVersion = "1.0"

// Defaults returns the settings in effect before anything has been saved.
func Defaults() models.Settings {
	return models.Settings{
		Version: CurrentVersion,
		PerPage: -1,
		Types:   map[string]models.TypeSettings{},
	}
}

// File is a settings store backed by a YAML file. It is safe for
// concurrent use.
type File struct {
	path string

	mu  sync.RWMutex
	cur models.Settings
	sum string
}

// Open loads the settings file at path. A missing file yields the defaults;
// it is created on the first Save.
func Open(path string) (*File, error) {
	f := &File{path: path}
	if _, err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Current returns a copy of the settings in effect.
func (f *File) Current(context.Context) (models.Settings, error) {
	s, _ := f.Snapshot()
	return s, nil
}

// Snapshot returns a copy of the settings and their checksum.
func (f *File) Snapshot() (models.Settings, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return clone(f.cur), f.sum
}

// Reload re-reads the file and reports whether the settings changed.
func (f *File) Reload() (bool, error) {
	s := Defaults()
	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return false, fmt.Errorf("settings: read %s: %w", f.path, err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return false, fmt.Errorf("settings: decode %s: %w", f.path, err)
		}
		if s.Types == nil {
			s.Types = map[string]models.TypeSettings{}
		}
	}

	sum, err := digest(s)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	changed := sum != f.sum
	f.cur, f.sum = s, sum
	return changed, nil
}

// Save validates s and writes it. A non-empty precondition is an If-Match
// value that must accept the current checksum, otherwise apperr.ErrConflict
// is returned. Save returns the new checksum.
func (f *File) Save(s models.Settings, precondition string) (string, error) {
	s.Version = CurrentVersion
	if err := Validate(s); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("settings: encode: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if precondition != "" && !checksum.Match(precondition, f.sum) {
		return "", apperr.ErrConflict
	}
	if err := writeAtomic(f.path, data); err != nil {
		return "", err
	}
	f.cur, f.sum = clone(s), checksum.Sum(data)
	return f.sum, nil
}

func digest(s models.Settings) (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("settings: encode: %w", err)
	}
	return checksum.Sum(data), nil
}

func clone(s models.Settings) models.Settings {
	s.HiddenFromMenu = slices.Clone(s.HiddenFromMenu)
	s.Types = maps.Clone(s.Types)
	if s.Types == nil {
		s.Types = map[string]models.TypeSettings{}
	}
	return s
}

// writeAtomic writes content to path: tmp file, fsync, rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-tmp-*")
	if err != nil {
		return fmt.Errorf("settings: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("settings: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("settings: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	success = true
	return nil
}
