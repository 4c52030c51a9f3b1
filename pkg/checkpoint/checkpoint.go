package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"liscraper/pkg/logger"
	"liscraper/pkg/models"
)

const (
	fileName       = "run.checkpoint.json"
	currentVersion = 1
)

// Run states stored in Checkpoint.Status
const (
	StatusRunning  = "running"
	StatusAborted  = "aborted"
	StatusDone     = "done"
	StatusCanceled = "canceled"
)

// Attempt is the journal entry for one target
type Attempt struct {
	Success bool      `json:"success"`
	Account string    `json:"account,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Checkpoint is the journal of one scraping run
type Checkpoint struct {
	RunID     string             `json:"run_id"`
	Status    string             `json:"status"`
	Attempted map[string]Attempt `json:"attempted"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Version   int                `json:"version"`
}

// Resumable reports whether the run stopped before reaching its end
func (c *Checkpoint) Resumable() bool {
	return c.Status == StatusAborted || c.Status == StatusCanceled || c.Status == StatusRunning
}

// WasAttempted reports whether the target already has a journal entry
func (c *Checkpoint) WasAttempted(target models.Target) bool {
	_, ok := c.Attempted[key(target)]
	return ok
}

// Remaining filters out targets the run already attempted
func (c *Checkpoint) Remaining(targets []models.Target) []models.Target {
	out := make([]models.Target, 0, len(targets))
	for _, t := range targets {
		if !c.WasAttempted(t) {
			out = append(out, t)
		}
	}
	return out
}

func key(target models.Target) string {
	if target.URL != "" {
		return target.URL
	}
	return target.Raw
}

// Manager reads and writes the run journal
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager stores the journal in dir, or in the per-user data directory
// when dir is empty
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "checkpoints")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, fileName),
		logger:         log.WithField("component", "checkpoint"),
	}, nil
}

// Path returns the journal file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Start begins a fresh journal, replacing any previous one
func (m *Manager) Start() (*Journal, error) {
	now := time.Now()
	cp := &Checkpoint{
		RunID:     uuid.NewString(),
		Status:    StatusRunning,
		Attempted: make(map[string]Attempt),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   currentVersion,
	}
	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.DebugWithFields("checkpoint created", map[string]interface{}{
		"run_id": cp.RunID,
		"path":   m.checkpointPath,
	})
	return &Journal{manager: m, cp: cp}, nil
}

// Resume continues an existing journal
func (m *Manager) Resume(cp *Checkpoint) *Journal {
	if cp.Attempted == nil {
		cp.Attempted = make(map[string]Attempt)
	}
	cp.Status = StatusRunning
	m.logger.InfoWithFields("resuming run", map[string]interface{}{
		"run_id":    cp.RunID,
		"attempted": len(cp.Attempted),
	})
	return &Journal{manager: m, cp: cp}
}

// Load returns the stored journal, or nil when none exists
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version > currentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported %d", cp.Version, currentVersion)
	}
	return &cp, nil
}

// Save writes the journal atomically
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Delete removes the journal file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Exists reports whether a journal file is present
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Journal appends attempts of the current run to its checkpoint
type Journal struct {
	mu      sync.Mutex
	manager *Manager
	cp      *Checkpoint
}

// RunID returns the identifier of the journaled run
func (j *Journal) RunID() string {
	return j.cp.RunID
}

// Record stores the outcome of one target
func (j *Journal) Record(result models.ScrapeResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cp.Attempted[key(result.Target)] = Attempt{
		Success: result.Success,
		Account: result.Account,
		Error:   result.Error,
		At:      result.Timestamp,
	}
	if result.Success {
		j.cp.Succeeded++
	} else {
		j.cp.Failed++
	}
	return j.manager.Save(j.cp)
}

// Finish stamps the final run status
func (j *Journal) Finish(status string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cp.Status = status
	j.manager.logger.DebugWithFields("checkpoint finished", map[string]interface{}{
		"run_id":    j.cp.RunID,
		"status":    status,
		"succeeded": j.cp.Succeeded,
		"failed":    j.cp.Failed,
	})
	return j.manager.Save(j.cp)
}

// Snapshot returns a copy of the journal state
func (j *Journal) Snapshot() Checkpoint {
	j.mu.Lock()
	defer j.mu.Unlock()

	cp := *j.cp
	cp.Attempted = make(map[string]Attempt, len(j.cp.Attempted))
	for k, v := range j.cp.Attempted {
		cp.Attempted[k] = v
	}
	return cp
}

func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "liscraper")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "liscraper")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, "liscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "liscraper")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
