package testable

import (
	"os"
)

// MockFileSystem is a test double for FileSystem. A non-nil function field
// replaces the corresponding method; nil fields fall through to the real
// file system, so tests override only what they need.
type MockFileSystem struct {
	StatFn     func(name string) (os.FileInfo, error)
	OpenFn     func(name string) (*os.File, error)
	CreateFn   func(name string) (*os.File, error)
	MkdirAllFn func(path string, perm os.FileMode) error
}

var real OsFileSystem

// Stat calls StatFn if set.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if m.StatFn != nil {
		return m.StatFn(name)
	}
	return real.Stat(name)
}

// Open calls OpenFn if set.
func (m *MockFileSystem) Open(name string) (*os.File, error) {
	if m.OpenFn != nil {
		return m.OpenFn(name)
	}
	return real.Open(name)
}

// Create calls CreateFn if set.
func (m *MockFileSystem) Create(name string) (*os.File, error) {
	if m.CreateFn != nil {
		return m.CreateFn(name)
	}
	return real.Create(name)
}

// MkdirAll calls MkdirAllFn if set.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if m.MkdirAllFn != nil {
		return m.MkdirAllFn(path, perm)
	}
	return real.MkdirAll(path, perm)
}

// Compile-time interface check.
var _ FileSystem = (*MockFileSystem)(nil)
