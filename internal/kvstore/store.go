// Package kvstore is a small YAML-backed key-value file used for settings
// outside the GUI.
package kvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oukeidos/transpop/internal/files"
	"github.com/oukeidos/transpop/internal/logger"
)

const (
	dirName  = ".transpop"
	fileName = "settings.yaml"
	filePerm = 0600
)

// DefaultPath returns ~/.transpop/settings.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// FileStore keeps values in memory and rewrites the file atomically after
// every change. Write errors are logged and kept for Err.
type FileStore struct {
	path string

	mu      sync.Mutex
	values  map[string]any
	lastErr error
}

// Open loads path. A missing file yields an empty store. A corrupt file is
// logged and treated as empty; the next write replaces it.
func Open(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("settings path is empty")
	}
	s := &FileStore{path: path, values: make(map[string]any)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		logger.Warn("Settings file is corrupt; starting from defaults", "path", path, "error", err)
		s.values = make(map[string]any)
		return s, nil
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) String(key string) string {
	return s.StringWithFallback(key, "")
}

func (s *FileStore) StringWithFallback(key, fallback string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func (s *FileStore) SetString(key, value string) {
	s.set(key, value)
}

func (s *FileStore) BoolWithFallback(key string, fallback bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := s.values[key].(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	}
	return fallback
}

func (s *FileStore) SetBool(key string, value bool) {
	s.set(key, value)
}

func (s *FileStore) RemoveValue(key string) {
	s.mu.Lock()
	if _, ok := s.values[key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.values, key)
	s.mu.Unlock()
	s.flushLogged()
}

// Keys returns the stored keys in sorted order.
func (s *FileStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clear removes every key and rewrites the file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	s.values = make(map[string]any)
	s.mu.Unlock()
	return s.Flush()
}

// Err returns the last write error, if any.
func (s *FileStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Flush writes the current values to disk.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	data, err := yaml.Marshal(s.values)
	s.mu.Unlock()
	if err != nil {
		return s.record(fmt.Errorf("failed to encode settings: %w", err))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return s.record(fmt.Errorf("failed to create settings directory: %w", err))
	}
	if err := files.AtomicWrite(s.path, data, filePerm); err != nil {
		return s.record(fmt.Errorf("failed to write settings: %w", err))
	}
	return s.record(nil)
}

func (s *FileStore) set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	s.flushLogged()
}

func (s *FileStore) flushLogged() {
	if err := s.Flush(); err != nil {
		logger.Error("Settings write failed", "path", s.path, "error", err)
	}
}

func (s *FileStore) record(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}
