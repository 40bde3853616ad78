package storage

import (
	"io/fs"
	"os"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

var _ FS = (*MockStorage)(nil)

func (m *MockStorage) RootAbs() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStorage) Resolve(relPath string) (string, error) {
	args := m.Called(relPath)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) MkdirAll(relPath string, perm fs.FileMode) error {
	args := m.Called(relPath, perm)
	return args.Error(0)
}

func (m *MockStorage) Stat(relPath string) (fs.FileInfo, error) {
	args := m.Called(relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(fs.FileInfo), args.Error(1)
}

func (m *MockStorage) ReadDir(relPath string) ([]fs.DirEntry, error) {
	args := m.Called(relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fs.DirEntry), args.Error(1)
}

func (m *MockStorage) ReadFile(relPath string) ([]byte, error) {
	args := m.Called(relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) WriteFileAtomic(relPath string, data []byte, perm fs.FileMode) error {
	args := m.Called(relPath, data, perm)
	return args.Error(0)
}

func (m *MockStorage) CreateExclusive(relPath string) (*os.File, error) {
	args := m.Called(relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*os.File), args.Error(1)
}

func (m *MockStorage) OpenForRead(relPath string) (*os.File, error) {
	args := m.Called(relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*os.File), args.Error(1)
}

func (m *MockStorage) Rename(oldPath string, newPath string) error {
	args := m.Called(oldPath, newPath)
	return args.Error(0)
}

func (m *MockStorage) Remove(relPath string) error {
	args := m.Called(relPath)
	return args.Error(0)
}

func (m *MockStorage) RemoveAll(relPath string) error {
	args := m.Called(relPath)
	return args.Error(0)
}
