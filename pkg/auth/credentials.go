package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Account is one LinkedIn login in the credential catalog
type Account struct {
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	Active       bool      `json:"active"`
	AddedAt      time.Time `json:"added_at"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is a backend holding account credentials
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(email string) (*Account, error)
	// List returns accounts in the order they were added
	List() ([]*Account, error)
	Delete(email string) error
	Exists(email string) bool
}

// Manager combines several stores; writes go to the first store that
// accepts them, reads fall through in order
type Manager struct {
	stores []CredentialStore
}

// NewManager builds the default chain: system keyring when available, the
// encrypted credentials file, then environment variables
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over explicit stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials in the first store that accepts them
func (m *Manager) Store(account *Account) error {
	if account == nil {
		return ErrInvalidCredentials
	}
	account.Email = NormalizeEmail(account.Email)
	if account.Email == "" {
		return errors.New("email is required")
	}
	if account.Password == "" {
		return errors.New("password is required")
	}

	now := time.Now()
	if existing, err := m.Retrieve(account.Email); err == nil && !existing.AddedAt.IsZero() {
		account.AddedAt = existing.AddedAt
	} else if account.AddedAt.IsZero() {
		account.AddedAt = now
	}
	account.LastModified = now

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(email string) (*Account, error) {
	email = NormalizeEmail(email)
	for _, store := range m.stores {
		if account, err := store.Retrieve(email); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, email)
}

// List returns the catalog in a stable order: stores in chain order, and
// each store's own insertion order. An email present in several stores keeps
// its first position and the most recently modified credentials.
func (m *Manager) List() ([]*Account, error) {
	var (
		order []string
		byKey = make(map[string]*Account)
		errs  []error
	)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, account := range accounts {
			key := NormalizeEmail(account.Email)
			existing, ok := byKey[key]
			if !ok {
				order = append(order, key)
				byKey[key] = account
				continue
			}
			if account.LastModified.After(existing.LastModified) {
				byKey[key] = account
			}
		}
	}

	result := make([]*Account, 0, len(order))
	for _, key := range order {
		result = append(result, byKey[key])
	}

	if len(result) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// Delete removes credentials from every store holding them
func (m *Manager) Delete(email string) error {
	email = NormalizeEmail(email)
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(email); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, email)
	}
	return nil
}

// NormalizeEmail trims and lower-cases an account identity
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "liscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "liscraper")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "liscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "liscraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// SanitizeAccount returns a copy safe to print
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	clean := *account
	clean.Password = maskString(account.Password)
	return &clean
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
