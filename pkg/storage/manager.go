package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

// TimestampLayout is the time format embedded in artifact file names
const TimestampLayout = "20060102_150405"

const stagingDirName = ".partial"

var artifactName = regexp.MustCompile(`^((?:[a-zA-Z0-9_-]|%[0-9A-F]{2})+)_(\d{8}_\d{6})\.pdf$`)

// Manager places profile PDFs under the download directory and keeps an index
// of which profiles already have one
type Manager struct {
	outputDir string
	artifacts map[string][]string
	mu        sync.RWMutex
}

// NewManager creates the download directory if needed and indexes what is
// already there
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		artifacts: make(map[string][]string),
	}
	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return manager, nil
}

func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := artifactName.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		id := match[1]
		m.artifacts[id] = append(m.artifacts[id], filepath.Join(m.outputDir, entry.Name()))
	}
	for id := range m.artifacts {
		sort.Strings(m.artifacts[id])
	}
	return nil
}

// FileName returns the artifact file name for a profile captured at a time
func FileName(linkedinID string, at time.Time) string {
	return fmt.Sprintf("%s_%s.pdf", linkedinID, at.Format(TimestampLayout))
}

// StagingDir returns a directory the browser can download into before the
// file is adopted under its final name
func (m *Manager) StagingDir() (string, error) {
	dir := filepath.Join(m.outputDir, stagingDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return dir, nil
}

// Save writes r as the artifact for linkedinID and returns its path
func (m *Manager) Save(r io.Reader, linkedinID string, at time.Time) (string, error) {
	filename := filepath.Join(m.outputDir, FileName(linkedinID, at))

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.remember(linkedinID, filename)
	return filename, nil
}

// Adopt moves a finished browser download to its final artifact name
func (m *Manager) Adopt(srcPath, linkedinID string, at time.Time) (string, error) {
	filename := filepath.Join(m.outputDir, FileName(linkedinID, at))
	if err := os.Rename(srcPath, filename); err == nil {
		m.remember(linkedinID, filename)
		return filename, nil
	}

	// rename fails across filesystems
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open download: %w", err)
	}
	defer src.Close()

	path, err := m.Save(src, linkedinID, at)
	if err != nil {
		return "", err
	}
	os.Remove(srcPath)
	return path, nil
}

func (m *Manager) remember(linkedinID, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[linkedinID] = append(m.artifacts[linkedinID], path)
}

// Has reports whether any artifact exists for linkedinID
func (m *Manager) Has(linkedinID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts[linkedinID]) > 0
}

// Latest returns the newest artifact path for linkedinID
func (m *Manager) Latest(linkedinID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := m.artifacts[linkedinID]
	if len(paths) == 0 {
		return "", false
	}
	return paths[len(paths)-1], true
}

// GetOutputDir returns the download directory
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Count returns the number of artifacts on disk
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, paths := range m.artifacts {
		n += len(paths)
	}
	return n
}
