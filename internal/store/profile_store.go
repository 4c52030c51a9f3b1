// Package store keeps extracted profiles in an embedded badger database.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"liscraper/pkg/logger"
	"liscraper/pkg/models"
)

// ErrNotFound is returned by Get for unknown profiles
var ErrNotFound = errors.New("profile not found")

// StoredProfile is one persisted profile, keyed by its linkedin id
type StoredProfile struct {
	LinkedInID     string
	CurrentCompany string `badgerhold:"index"`
	Record         models.ProfileRecord
	Meta           models.RecordMeta
	Captures       int
	FirstSeen      time.Time
	UpdatedAt      time.Time
}

// ProfileStore upserts records so repeated runs over the same profile keep a
// single entry
type ProfileStore struct {
	store  *badgerhold.Store
	logger logger.Logger
}

// Open opens or creates the database directory at path
func Open(path string, log logger.Logger) (*ProfileStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(path).WithLogger(nil)
	return open(options, log, path)
}

// OpenInMemory opens a store that lives only as long as the process
func OpenInMemory(log logger.Logger) (*ProfileStore, error) {
	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return open(options, log, ":memory:")
}

func open(options badgerhold.Options, log logger.Logger, path string) (*ProfileStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "profile_store")

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	log.DebugWithFields("profile store opened", map[string]interface{}{"path": path})
	return &ProfileStore{store: store, logger: log}, nil
}

// Upsert inserts or replaces the profile identified by record.LinkedInID
func (s *ProfileStore) Upsert(ctx context.Context, record *models.ProfileRecord, meta models.RecordMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil || record.LinkedInID == "" {
		return fmt.Errorf("profile linkedin id is required")
	}

	now := time.Now()
	entry := StoredProfile{
		LinkedInID:     record.LinkedInID,
		CurrentCompany: record.CurrentCompany,
		Record:         *record,
		Meta:           meta,
		Captures:       1,
		FirstSeen:      now,
		UpdatedAt:      now,
	}

	var existing StoredProfile
	err := s.store.Get(record.LinkedInID, &existing)
	switch {
	case err == nil:
		entry.FirstSeen = existing.FirstSeen
		entry.Captures = existing.Captures + 1
	case err != badgerhold.ErrNotFound:
		return fmt.Errorf("failed to read profile: %w", err)
	}

	if err := s.store.Upsert(record.LinkedInID, entry); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	s.logger.DebugWithFields("profile stored", map[string]interface{}{
		"linkedin_id": record.LinkedInID,
		"captures":    entry.Captures,
	})
	return nil
}

// Get returns one stored profile
func (s *ProfileStore) Get(linkedinID string) (*StoredProfile, error) {
	var entry StoredProfile
	if err := s.store.Get(linkedinID, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &entry, nil
}

// FindByCompany lists profiles whose current company matches exactly
func (s *ProfileStore) FindByCompany(company string) ([]StoredProfile, error) {
	var entries []StoredProfile
	if err := s.store.Find(&entries, badgerhold.Where("CurrentCompany").Eq(company).Index("CurrentCompany")); err != nil {
		return nil, fmt.Errorf("failed to find profiles: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored profiles
func (s *ProfileStore) Count() (int, error) {
	n, err := s.store.Count(&StoredProfile{}, badgerhold.Where("LinkedInID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return int(n), nil
}

// Delete removes a stored profile; unknown ids are ignored
func (s *ProfileStore) Delete(linkedinID string) error {
	if err := s.store.Delete(linkedinID, &StoredProfile{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// Close releases the database
func (s *ProfileStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
