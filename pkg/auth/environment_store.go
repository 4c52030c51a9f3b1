package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const maxNumberedAccounts = 9

// EnvironmentStore reads accounts from LINKEDIN_ACCOUNTS, a JSON array of
// {"email", "password", "active"} objects, or from numbered
// LINKEDIN_EMAIL_n / LINKEDIN_PASSWORD_n pairs when the array is unset.
// It is read-only.
type EnvironmentStore struct {
	getenv func(string) string
}

// NewEnvironmentStore creates a store backed by the process environment
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{getenv: os.Getenv}
}

type envAccount struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Active   *bool  `json:"active,omitempty"`
}

func (e *EnvironmentStore) load() ([]*Account, error) {
	if raw := strings.TrimSpace(e.getenv("LINKEDIN_ACCOUNTS")); raw != "" {
		var entries []envAccount
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("LINKEDIN_ACCOUNTS is not a JSON array of accounts: %w", err)
		}
		accounts := make([]*Account, 0, len(entries))
		for _, entry := range entries {
			if entry.Email == "" || entry.Password == "" {
				continue
			}
			active := entry.Active == nil || *entry.Active
			accounts = append(accounts, &Account{
				Email:    NormalizeEmail(entry.Email),
				Password: entry.Password,
				Active:   active,
			})
		}
		return accounts, nil
	}

	var accounts []*Account
	for i := 1; i <= maxNumberedAccounts; i++ {
		email := e.getenv(fmt.Sprintf("LINKEDIN_EMAIL_%d", i))
		password := e.getenv(fmt.Sprintf("LINKEDIN_PASSWORD_%d", i))
		if email == "" || password == "" {
			continue
		}
		accounts = append(accounts, &Account{
			Email:    NormalizeEmail(email),
			Password: password,
			Active:   true,
		})
	}
	return accounts, nil
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve finds one account in the environment
func (e *EnvironmentStore) Retrieve(email string) (*Account, error) {
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	accounts, err := e.load()
	if err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	for _, account := range accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// List returns environment accounts in declaration order
func (e *EnvironmentStore) List() ([]*Account, error) {
	return e.load()
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(email string) error {
	return ErrStoreUnavailable
}

// Exists checks whether the environment declares the account
func (e *EnvironmentStore) Exists(email string) bool {
	account, err := e.Retrieve(email)
	return err == nil && account != nil
}
