// Package ledger tracks how much each account has been used and decides
// which account may open the next session.
//
// Each account behaves like a token bucket holding MaxProfilesPerAccount
// tokens that refills all at once after Cooldown has passed since its last
// use. Unlike a plain bucket, the refill happens lazily inside NextAvailable,
// which therefore mutates state.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"liscraper/pkg/auth"
)

// Account is the ledger's view of one catalog account
type Account struct {
	Email    string
	Password string
	Active   bool

	ProfilesScrapedThisWindow int
	// LastUsedAt is nil until the account serves its first target
	LastUsedAt *time.Time
	// Available turns false after an authentication failure and stays false
	Available bool

	Succeeded int
	Failed    int
}

// Policy holds the rotation limits
type Policy struct {
	MaxProfilesPerAccount int
	Cooldown              time.Duration
}

// Ledger owns all account usage state for one run
type Ledger struct {
	mu       sync.Mutex
	policy   Policy
	accounts []*Account
	byEmail  map[string]*Account
}

// New builds a ledger over the catalog, preserving its order. Duplicate
// emails keep their first position.
func New(catalog []*auth.Account, policy Policy) *Ledger {
	l := &Ledger{
		policy:  policy,
		byEmail: make(map[string]*Account, len(catalog)),
	}
	for _, entry := range catalog {
		if entry == nil {
			continue
		}
		email := auth.NormalizeEmail(entry.Email)
		if _, dup := l.byEmail[email]; dup || email == "" {
			continue
		}
		account := &Account{
			Email:     email,
			Password:  entry.Password,
			Active:    entry.Active,
			Available: true,
		}
		l.accounts = append(l.accounts, account)
		l.byEmail[email] = account
	}
	return l
}

// Policy returns the limits the ledger enforces
func (l *Ledger) Policy() Policy {
	return l.policy
}

// Len returns the number of accounts tracked
func (l *Ledger) Len() int {
	return len(l.accounts)
}

// NextAvailable returns a copy of the first account, in catalog order, that
// may start a session at now, or nil when none can.
//
// It is not a pure query. For every account it considers before returning,
// if at least Cooldown has passed since the account's last use, the usage
// counter is reset to zero; this reset happens before the cap check, so a
// capped account whose cooldown expired is selectable in the same call.
// Accounts after the returned one are not considered and keep their state.
// Inactive and unavailable accounts are skipped without being reset.
func (l *Ledger) NextAvailable(now time.Time) *Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, account := range l.accounts {
		if !account.Active || !account.Available {
			continue
		}
		if account.LastUsedAt != nil && now.Sub(*account.LastUsedAt) >= l.policy.Cooldown {
			account.ProfilesScrapedThisWindow = 0
		}
		if account.ProfilesScrapedThisWindow < l.policy.MaxProfilesPerAccount {
			snapshot := *account
			return &snapshot
		}
	}
	return nil
}

// HasCapacity reports whether the account is below its cap in the current
// window. It never resets anything.
func (l *Ledger) HasCapacity(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return false
	}
	return account.Available && account.ProfilesScrapedThisWindow < l.policy.MaxProfilesPerAccount
}

// RecordSuccess counts one scraped profile against the account
func (l *Ledger) RecordSuccess(email string, now time.Time) error {
	return l.update(email, func(a *Account) {
		a.ProfilesScrapedThisWindow++
		a.Succeeded++
		stamp := now
		a.LastUsedAt = &stamp
	})
}

// RecordFailure counts a failed profile attempt against the account; the
// page was still loaded under its session
func (l *Ledger) RecordFailure(email string, now time.Time) error {
	return l.update(email, func(a *Account) {
		a.ProfilesScrapedThisWindow++
		a.Failed++
		stamp := now
		a.LastUsedAt = &stamp
	})
}

// RecordAuthFailure disables the account for the rest of the run
func (l *Ledger) RecordAuthFailure(email string) error {
	return l.update(email, func(a *Account) {
		a.Available = false
	})
}

func (l *Ledger) update(email string, fn func(*Account)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return fmt.Errorf("unknown account %q", email)
	}
	fn(account)
	return nil
}

// Get returns a copy of one account's state
func (l *Ledger) Get(email string) (Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return Account{}, false
	}
	return *account, true
}

// Snapshot returns copies of all accounts in catalog order
func (l *Ledger) Snapshot() []Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Account, len(l.accounts))
	for i, account := range l.accounts {
		out[i] = *account
	}
	return out
}
