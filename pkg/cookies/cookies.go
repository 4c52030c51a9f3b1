// Package cookies persists the authenticated browser state of each account.
//
// A Set is written after every successful credential login and replayed on
// the next session. Stores never fail a read because of a missing or corrupt
// entry: Load returns nil and the caller falls back to a credential login.
package cookies

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Cookie is one browser cookie. Expires is in unix seconds; zero or negative
// marks a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// Expired reports whether the cookie has a fixed expiry before now
func (c Cookie) Expired(now time.Time) bool {
	if c.Expires <= 0 {
		return false
	}
	return time.Unix(int64(c.Expires), 0).Before(now)
}

// Set is the authenticated state of one account
type Set struct {
	Identity string    `json:"identity"`
	Cookies  []Cookie  `json:"cookies"`
	SavedAt  time.Time `json:"saved_at"`
}

// Live returns the cookies that have not expired at now
func (s *Set) Live(now time.Time) []Cookie {
	if s == nil {
		return nil
	}
	out := make([]Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		if !c.Expired(now) {
			out = append(out, c)
		}
	}
	return out
}

// Store is the storage-agnostic contract used by the coordinator
type Store interface {
	// Load returns nil, nil when nothing usable is stored for identity
	Load(ctx context.Context, identity string) (*Set, error)
	Save(ctx context.Context, set *Set) error
	// List returns the identities that currently have a stored set
	List(ctx context.Context) ([]string, error)
	// Invalidate drops the stored set; absent entries are not an error
	Invalidate(ctx context.Context, identity string) error
}

const (
	maxReadableKey = 40
	hashChars      = 12
)

// Key maps an account identity to a storage key that is safe as a file name
// and as a Redis key segment. The readable prefix keeps the key recognizable,
// the hash suffix keeps distinct identities apart even when their readable
// parts collide.
func Key(identity string) string {
	normalized := strings.ToLower(strings.TrimSpace(identity))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range normalized {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	readable := strings.TrimRight(b.String(), "_")
	if len(readable) > maxReadableKey {
		readable = strings.TrimRight(readable[:maxReadableKey], "_")
	}
	if readable == "" {
		readable = "account"
	}

	sum := sha256.Sum256([]byte(normalized))
	return readable + "-" + hex.EncodeToString(sum[:])[:hashChars]
}

// decode parses a stored set; anything unusable becomes nil
func decode(data []byte, identity string) *Set {
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil
	}
	if len(set.Cookies) == 0 {
		return nil
	}
	if set.Identity == "" {
		set.Identity = identity
	}
	return &set
}

func encode(set *Set) ([]byte, error) {
	if set == nil || set.Identity == "" {
		return nil, fmt.Errorf("cookie set requires an identity")
	}
	if set.SavedAt.IsZero() {
		set.SavedAt = time.Now().UTC()
	}
	return json.MarshalIndent(set, "", "  ")
}
