package cookies

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"liscraper/pkg/logger"
)

// FileStore keeps one JSON file per account under a directory
type FileStore struct {
	dir string
	log logger.Logger
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cookies directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Path returns the file that holds identity's cookies
func (f *FileStore) Path(identity string) string {
	return filepath.Join(f.dir, Key(identity)+".json")
}

func (f *FileStore) Load(ctx context.Context, identity string) (*Set, error) {
	path := f.Path(identity)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		f.log.WithError(err).WarnWithFields("cookie file unreadable", map[string]interface{}{"path": path})
		return nil, nil
	}

	set := decode(data, identity)
	if set == nil {
		f.log.WarnWithFields("ignoring corrupt cookie file", map[string]interface{}{"path": path})
	}
	return set, nil
}

// Save writes the set atomically through a temporary file
func (f *FileStore) Save(ctx context.Context, set *Set) error {
	data, err := encode(set)
	if err != nil {
		return err
	}

	path := f.Path(set.Identity)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move cookie file into place: %w", err)
	}
	return nil
}

func (f *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies directory: %w", err)
	}

	var identities []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, name))
		if err != nil {
			continue
		}
		set := decode(data, "")
		if set == nil || set.Identity == "" {
			continue
		}
		identities = append(identities, set.Identity)
	}
	sort.Strings(identities)
	return identities, nil
}

func (f *FileStore) Invalidate(ctx context.Context, identity string) error {
	err := os.Remove(f.Path(identity))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cookie file: %w", err)
	}
	return nil
}
