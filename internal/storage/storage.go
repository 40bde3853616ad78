package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FS is the filesystem surface the services work against. Every path is
// root-relative and slash separated; callers validate client input with
// CleanClientPath before building paths from it.
type FS interface {
	RootAbs() string
	Resolve(relPath string) (string, error)
	MkdirAll(relPath string, perm fs.FileMode) error
	Stat(relPath string) (fs.FileInfo, error)
	ReadDir(relPath string) ([]fs.DirEntry, error)
	ReadFile(relPath string) ([]byte, error)
	WriteFileAtomic(relPath string, data []byte, perm fs.FileMode) error
	CreateExclusive(relPath string) (*os.File, error)
	OpenForRead(relPath string) (*os.File, error)
	Rename(oldPath string, newPath string) error
	Remove(relPath string) error
	RemoveAll(relPath string) error
}

type Storage struct {
	validator *PathValidator
}

var _ FS = (*Storage)(nil)

func New(root string) (*Storage, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Storage{validator: validator}, nil
}

func (s *Storage) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *Storage) Resolve(relPath string) (string, error) {
	return s.validator.Join(relPath)
}

func (s *Storage) MkdirAll(relPath string, perm fs.FileMode) error {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(resolved, perm); err != nil {
		return fmt.Errorf("mkdir %q: %w", relPath, err)
	}

	return nil
}

func (s *Storage) Stat(relPath string) (fs.FileInfo, error) {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	return os.Stat(resolved)
}

func (s *Storage) ReadDir(relPath string) ([]fs.DirEntry, error) {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	return os.ReadDir(resolved)
}

func (s *Storage) ReadFile(relPath string) ([]byte, error) {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(resolved)
}

// WriteFileAtomic writes to a temporary sibling and renames it into place,
// so readers never observe a half-written file.
func (s *Storage) WriteFileAtomic(relPath string, data []byte, perm fs.FileMode) error {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return err
	}

	tempPath := filepath.Join(filepath.Dir(resolved), ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tempPath, data, perm); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("write %q: %w", relPath, err)
	}

	if err := os.Rename(tempPath, resolved); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("replace %q: %w", relPath, err)
	}

	return nil
}

// CreateExclusive creates a new file and fails with fs.ErrExist when the
// name is already taken.
func (s *Storage) CreateExclusive(relPath string) (*os.File, error) {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	return os.OpenFile(resolved, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

func (s *Storage) OpenForRead(relPath string) (*os.File, error) {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	return os.Open(resolved)
}

func (s *Storage) Rename(oldPath string, newPath string) error {
	oldResolved, err := s.Resolve(oldPath)
	if err != nil {
		return err
	}

	newResolved, err := s.Resolve(newPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(newResolved), 0o755); err != nil {
		return fmt.Errorf("prepare destination %q: %w", newPath, err)
	}

	if err := os.Rename(oldResolved, newResolved); err != nil {
		return fmt.Errorf("rename %q to %q: %w", oldPath, newPath, err)
	}

	return nil
}

func (s *Storage) Remove(relPath string) error {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return err
	}

	if resolved == s.RootAbs() {
		return errors.New("refusing to remove storage root")
	}

	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("remove %q: %w", relPath, err)
	}

	return nil
}

func (s *Storage) RemoveAll(relPath string) error {
	resolved, err := s.Resolve(relPath)
	if err != nil {
		return err
	}

	if resolved == s.RootAbs() {
		return errors.New("refusing to remove storage root")
	}

	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("remove %q: %w", relPath, err)
	}

	return nil
}
