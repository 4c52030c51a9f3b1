package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "liscraper"
	keyringPrefix  = "linkedin_"
	// go-keyring cannot enumerate entries, so the store keeps its own index
	keyringIndex = "index"
)

// KeyringStore keeps credentials in the system keychain
type KeyringStore struct{}

// NewKeyringStore returns a store if the system keychain is usable
func NewKeyringStore() (*KeyringStore, error) {
	probe := "probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

// IsKeyringAvailable reports whether the system keychain accepts writes
func IsKeyringAvailable() bool {
	_, err := NewKeyringStore()
	return err == nil
}

func (k *KeyringStore) index() ([]string, error) {
	data, err := keyring.Get(keyringService, keyringIndex)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}
	var emails []string
	if err := json.Unmarshal([]byte(data), &emails); err != nil {
		return nil, fmt.Errorf("failed to decode keyring index: %w", err)
	}
	return emails, nil
}

func (k *KeyringStore) saveIndex(emails []string) error {
	data, err := json.Marshal(emails)
	if err != nil {
		return err
	}
	return keyring.Set(keyringService, keyringIndex, string(data))
}

// Store saves credentials and appends the email to the index
func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Email == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+account.Email, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	emails, err := k.index()
	if err != nil {
		return err
	}
	for _, e := range emails {
		if e == account.Email {
			return nil
		}
	}
	return k.saveIndex(append(emails, account.Email))
}

// Retrieve reads credentials from the keychain
func (k *KeyringStore) Retrieve(email string) (*Account, error) {
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+email)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

// List returns indexed accounts in insertion order, skipping stale entries
func (k *KeyringStore) List() ([]*Account, error) {
	emails, err := k.index()
	if err != nil {
		return nil, err
	}
	accounts := make([]*Account, 0, len(emails))
	for _, email := range emails {
		account, err := k.Retrieve(email)
		if err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Delete removes credentials and their index entry
func (k *KeyringStore) Delete(email string) error {
	if email == "" {
		return ErrInvalidCredentials
	}

	err := keyring.Delete(keyringService, keyringPrefix+email)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	emails, err := k.index()
	if err != nil {
		return err
	}
	kept := emails[:0]
	for _, e := range emails {
		if e != email {
			kept = append(kept, e)
		}
	}
	return k.saveIndex(kept)
}

// Exists checks whether the keychain holds the account
func (k *KeyringStore) Exists(email string) bool {
	if email == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+email)
	return err == nil
}
