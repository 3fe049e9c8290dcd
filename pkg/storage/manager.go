package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// filePrefix marks files staged by this process in a shared temp directory
const filePrefix = "artbot-"

// Manager stages downloaded images on disk and tracks them until removal
type Manager struct {
	tempDir string
	staged  map[string]bool
	mu      sync.Mutex
}

// StagedFile is one image written to the temp directory
type StagedFile struct {
	Path string
	Size int64

	manager *Manager
}

// NewManager creates a manager writing under tempDir, or the system temp
// directory when tempDir is empty
func NewManager(tempDir string) (*Manager, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	if err := os.MkdirAll(tempDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &Manager{
		tempDir: tempDir,
		staged:  make(map[string]bool),
	}, nil
}

// Stage writes data to a uniquely named file with extension ext
func (m *Manager) Stage(data []byte, ext string) (*StagedFile, error) {
	filename := filepath.Join(m.tempDir, filePrefix+uuid.NewString()+ext)

	// Write under a .tmp name so a half-written file is never visible
	tempFile := filename + ".tmp"
	out, err := os.OpenFile(tempFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	n, err := out.Write(data)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return nil, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return nil, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.staged[filename] = true
	m.mu.Unlock()

	return &StagedFile{Path: filename, Size: int64(n), manager: m}, nil
}

// WithStagedFile stages data, passes it to fn and removes the file however
// fn returns, including by panic. A removal failure is joined to fn's error.
func (m *Manager) WithStagedFile(data []byte, ext string, fn func(*StagedFile) error) (err error) {
	file, err := m.Stage(data, ext)
	if err != nil {
		return err
	}

	defer func() {
		if removeErr := file.Remove(); removeErr != nil {
			err = errors.Join(err, removeErr)
		}
	}()

	return fn(file)
}

// Cleanup removes every file still staged by this manager
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	paths := make([]string, 0, len(m.staged))
	for path := range m.staged {
		paths = append(paths, path)
	}
	m.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := m.remove(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Outstanding returns the number of staged files not yet removed
func (m *Manager) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged)
}

// TempDir returns the directory files are staged in
func (m *Manager) TempDir() string {
	return m.tempDir
}

func (m *Manager) remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged file: %w", err)
	}

	m.mu.Lock()
	delete(m.staged, path)
	m.mu.Unlock()
	return nil
}

// Open opens the staged file for reading
func (f *StagedFile) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	return file, nil
}

// Name returns the base file name
func (f *StagedFile) Name() string {
	return filepath.Base(f.Path)
}

// Remove deletes the staged file. Removing twice is not an error.
func (f *StagedFile) Remove() error {
	return f.manager.remove(f.Path)
}
