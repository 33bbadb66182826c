package chathub

import (
	"sync"
	"time"
)

// presenceEntry is ephemeral, process-lifetime-only state: it exists
// only while an authenticated connection for the identity is open.
type presenceEntry struct {
	client     Client
	lastSeenAt time.Time
}

// PresenceRegistry maps authenticated identities to their active
// connection handle. It is owned by a ManagerService instance (created
// at gateway start, torn down with it) rather than living as package
// state, so multiple gateways and tests never share presence.
//
// The model is last-connection-wins: one handle per identity, replaced
// on re-register, removed on a matching close.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]presenceEntry
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{entries: make(map[string]presenceEntry)}
}

// Register stores the connection handle for userID, overwriting any
// existing one. It returns the replaced handle (nil if the user was
// offline) so the caller can shut the older connection down.
func (p *PresenceRegistry) Register(userID string, c Client) Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	var replaced Client
	if prev, ok := p.entries[userID]; ok && prev.client != c {
		replaced = prev.client
	}
	p.entries[userID] = presenceEntry{client: c, lastSeenAt: time.Now()}
	return replaced
}

// Unregister removes the entry for userID only if the stored handle is
// the one that is disconnecting. The guard keeps a delayed close event
// from an older connection from evicting a newer connection's entry.
// It reports whether the entry was actually removed.
func (p *PresenceRegistry) Unregister(userID string, c Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[userID]
	if !ok || entry.client != c {
		return false
	}
	delete(p.entries, userID)
	return true
}

// IsOnline reports whether userID has an open authenticated connection.
func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[userID]
	return ok
}

// Get returns the active connection handle for userID, if any.
func (p *PresenceRegistry) Get(userID string) (Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[userID]
	if !ok {
		return nil, false
	}
	return entry.client, true
}

// Snapshot returns the set of online identities. Used once at connect
// time to hydrate a new client's view.
func (p *PresenceRegistry) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	users := make([]string, 0, len(p.entries))
	for id := range p.entries {
		users = append(users, id)
	}
	return users
}

// Clients returns every active connection handle.
func (p *PresenceRegistry) Clients() []Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	clients := make([]Client, 0, len(p.entries))
	for _, entry := range p.entries {
		clients = append(clients, entry.client)
	}
	return clients
}
