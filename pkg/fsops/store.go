// pkg/fsops/store.go
package fsops

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"relatorios/internal/apperrors"
)

// Store is a flat directory of attachment files addressed by bare file name.
type Store struct {
	Root string
}

// NewStore creates the directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.Storage("failed to create attachment directory", err)
	}
	return &Store{Root: root}, nil
}

// Path resolves name inside Root, rejecting anything that is not a bare file name.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", apperrors.Invalid("invalid attachment name %q", name)
	}
	return filepath.Join(s.Root, name), nil
}

// Exists reports whether name is a regular file in the store.
func (s *Store) Exists(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Write stores data under name. The bytes go to a .tmp sibling first and are
// renamed into place, so readers never observe a half-written file.
func (s *Store) Write(name string, data []byte) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	tmpPath := p + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return apperrors.Storage("failed to write attachment", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		os.Remove(tmpPath)
		return apperrors.Storage("failed to commit attachment", err)
	}
	return nil
}

func (s *Store) Read(name string) ([]byte, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NotFound("attachment %s not found", name)
	}
	if err != nil {
		return nil, apperrors.Storage("failed to read attachment", err)
	}
	return data, nil
}

// Remove deletes name. A file that is already gone is not an error.
func (s *Store) Remove(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.Storage("failed to remove attachment", err)
	}
	return nil
}

// HashFile returns the hex SHA-256 of name.
func (s *Store) HashFile(name string) (string, error) {
	p, err := s.Path(name)
	if err != nil {
		return "", err
	}
	f, err := os.Open(p)
	if err != nil {
		return "", apperrors.Storage("failed to open attachment", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", apperrors.Storage("failed to hash attachment", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ScanAll lists every committed file in the store mapped to its hash.
// Leftover .tmp files are skipped.
func (s *Store) ScanAll() (map[string]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, apperrors.Storage("failed to list attachment directory", err)
	}
	result := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		hash, err := s.HashFile(e.Name())
		if err != nil {
			return nil, err
		}
		result[e.Name()] = hash
	}
	return result, nil
}
