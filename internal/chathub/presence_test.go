package chathub_test

import (
	"testing"

	"unimarket/backend/internal/chathub"

	"github.com/stretchr/testify/assert"
)

func TestPresenceRegisterAndSnapshot(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	a := newMockClient("user_A")
	b := newMockClient("user_B")

	assert.False(t, p.IsOnline("user_A"))

	replaced := p.Register("user_A", a)
	assert.Nil(t, replaced, "first registration replaces nothing")
	assert.True(t, p.IsOnline("user_A"))

	p.Register("user_B", b)
	assert.ElementsMatch(t, []string{"user_A", "user_B"}, p.Snapshot())
	assert.Len(t, p.Clients(), 2)
}

// TestPresenceLastConnectionWins verifies that a second connection for
// the same identity replaces the registry entry.
func TestPresenceLastConnectionWins(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	first := newMockClient("user_A")
	second := newMockClient("user_A")

	p.Register("user_A", first)
	replaced := p.Register("user_A", second)

	assert.Same(t, first, replaced, "older connection handle is handed back")
	got, ok := p.Get("user_A")
	assert.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, []string{"user_A"}, p.Snapshot(), "still a single entry")
}

// TestPresenceStaleCloseGuard verifies that a delayed close from an
// older connection cannot evict a newer connection's entry.
func TestPresenceStaleCloseGuard(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	first := newMockClient("user_A")
	second := newMockClient("user_A")

	p.Register("user_A", first)
	p.Register("user_A", second)

	// The stale close arrives late.
	removed := p.Unregister("user_A", first)
	assert.False(t, removed, "stale close must not remove the entry")
	assert.True(t, p.IsOnline("user_A"))

	removed = p.Unregister("user_A", second)
	assert.True(t, removed)
	assert.False(t, p.IsOnline("user_A"))
}

func TestPresenceUnregisterUnknownUser(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	assert.False(t, p.Unregister("ghost", newMockClient("ghost")))
	assert.Empty(t, p.Snapshot())
}
