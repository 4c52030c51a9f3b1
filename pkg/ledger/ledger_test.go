package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liscraper/pkg/auth"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func catalog(emails ...string) []*auth.Account {
	out := make([]*auth.Account, 0, len(emails))
	for _, e := range emails {
		out = append(out, &auth.Account{Email: e, Password: "pw-" + e, Active: true})
	}
	return out
}

func TestRecordSuccessIncrementsAndStamps(t *testing.T) {
	l := New(catalog("a@x.com", "b@x.com"), Policy{MaxProfilesPerAccount: 5, Cooldown: 30 * time.Minute})

	for i := 1; i <= 3; i++ {
		at := t0.Add(time.Duration(i) * time.Minute)
		before, _ := l.Get("a@x.com")
		require.NoError(t, l.RecordSuccess("a@x.com", at))
		after, _ := l.Get("a@x.com")

		assert.Equal(t, before.ProfilesScrapedThisWindow+1, after.ProfilesScrapedThisWindow)
		require.NotNil(t, after.LastUsedAt)
		assert.True(t, after.LastUsedAt.Equal(at))
	}

	other, _ := l.Get("b@x.com")
	assert.Zero(t, other.ProfilesScrapedThisWindow)
	assert.Nil(t, other.LastUsedAt)
}

func TestRecordUnknownAccount(t *testing.T) {
	l := New(catalog("a@x.com"), Policy{MaxProfilesPerAccount: 1})
	assert.Error(t, l.RecordSuccess("ghost@x.com", t0))
	assert.Error(t, l.RecordAuthFailure("ghost@x.com"))
}

func TestNextAvailableFollowsCatalogOrder(t *testing.T) {
	l := New(catalog("a@x.com", "b@x.com", "c@x.com"), Policy{MaxProfilesPerAccount: 1, Cooldown: time.Hour})

	got := l.NextAvailable(t0)
	require.NotNil(t, got)
	assert.Equal(t, "a@x.com", got.Email)

	require.NoError(t, l.RecordSuccess("a@x.com", t0))
	got = l.NextAvailable(t0)
	require.NotNil(t, got)
	assert.Equal(t, "b@x.com", got.Email)
}

func TestNextAvailableExcludesCappedAccountsDuringCooldown(t *testing.T) {
	l := New(catalog("a@x.com"), Policy{MaxProfilesPerAccount: 2, Cooldown: 30 * time.Minute})
	require.NoError(t, l.RecordSuccess("a@x.com", t0))
	require.NoError(t, l.RecordSuccess("a@x.com", t0))

	assert.Nil(t, l.NextAvailable(t0.Add(29*time.Minute)))

	// still capped, the failed query must not have reset anything
	a, _ := l.Get("a@x.com")
	assert.Equal(t, 2, a.ProfilesScrapedThisWindow)
}

func TestNextAvailableResetsCounterAfterCooldown(t *testing.T) {
	l := New(catalog("a@x.com"), Policy{MaxProfilesPerAccount: 2, Cooldown: 30 * time.Minute})
	require.NoError(t, l.RecordSuccess("a@x.com", t0))
	require.NoError(t, l.RecordSuccess("a@x.com", t0))

	got := l.NextAvailable(t0.Add(30 * time.Minute))
	require.NotNil(t, got)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Zero(t, got.ProfilesScrapedThisWindow)

	a, _ := l.Get("a@x.com")
	assert.Zero(t, a.ProfilesScrapedThisWindow, "reset is an observable side effect")
	require.NotNil(t, a.LastUsedAt)
	assert.True(t, a.LastUsedAt.Equal(t0), "selection does not stamp last use")
}

func TestNextAvailableResetsUncappedAccountAfterCooldown(t *testing.T) {
	l := New(catalog("a@x.com"), Policy{MaxProfilesPerAccount: 5, Cooldown: 10 * time.Minute})
	require.NoError(t, l.RecordSuccess("a@x.com", t0))

	got := l.NextAvailable(t0.Add(10 * time.Minute))
	require.NotNil(t, got)
	assert.Zero(t, got.ProfilesScrapedThisWindow)
}

func TestNextAvailableDoesNotConsiderAccountsAfterTheChosenOne(t *testing.T) {
	l := New(catalog("a@x.com", "b@x.com"), Policy{MaxProfilesPerAccount: 3, Cooldown: 10 * time.Minute})
	require.NoError(t, l.RecordSuccess("b@x.com", t0))

	got := l.NextAvailable(t0.Add(time.Hour))
	require.NotNil(t, got)
	assert.Equal(t, "a@x.com", got.Email)

	b, _ := l.Get("b@x.com")
	assert.Equal(t, 1, b.ProfilesScrapedThisWindow)
}

func TestRecordAuthFailureIsPermanent(t *testing.T) {
	l := New(catalog("a@x.com", "b@x.com"), Policy{MaxProfilesPerAccount: 1, Cooldown: time.Minute})
	require.NoError(t, l.RecordAuthFailure("a@x.com"))

	got := l.NextAvailable(t0.Add(24 * time.Hour))
	require.NotNil(t, got)
	assert.Equal(t, "b@x.com", got.Email)

	require.NoError(t, l.RecordAuthFailure("b@x.com"))
	assert.Nil(t, l.NextAvailable(t0.Add(48*time.Hour)))
	assert.False(t, l.HasCapacity("a@x.com"))
}

func TestInactiveAccountsAreNeverSelected(t *testing.T) {
	accounts := catalog("a@x.com", "b@x.com")
	accounts[0].Active = false
	l := New(accounts, Policy{MaxProfilesPerAccount: 1, Cooldown: time.Minute})

	got := l.NextAvailable(t0)
	require.NotNil(t, got)
	assert.Equal(t, "b@x.com", got.Email)
}

func TestRecordFailureSpendsCapacity(t *testing.T) {
	l := New(catalog("a@x.com"), Policy{MaxProfilesPerAccount: 1, Cooldown: time.Hour})
	require.NoError(t, l.RecordFailure("a@x.com", t0))

	assert.False(t, l.HasCapacity("a@x.com"))
	a, _ := l.Get("a@x.com")
	assert.Equal(t, 1, a.Failed)
	assert.Zero(t, a.Succeeded)
}

func TestNextAvailableReturnsCopy(t *testing.T) {
	l := New(catalog("a@x.com"), Policy{MaxProfilesPerAccount: 1, Cooldown: time.Hour})
	got := l.NextAvailable(t0)
	require.NotNil(t, got)
	got.ProfilesScrapedThisWindow = 99
	got.Available = false

	assert.True(t, l.HasCapacity("a@x.com"))
}

func TestNewDeduplicatesAndNormalizes(t *testing.T) {
	l := New(catalog("A@x.com", "a@x.com ", "b@x.com"), Policy{MaxProfilesPerAccount: 1})
	assert.Equal(t, 2, l.Len())

	snap := l.Snapshot()
	assert.Equal(t, "a@x.com", snap[0].Email)
	assert.Equal(t, "pw-A@x.com", snap[0].Password)
}
