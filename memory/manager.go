package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// An Archive persists memory snapshots.
type Archive interface {
	// Save persists the memory snapshot of the given agent.
	Save(ctx context.Context, agentID uuid.UUID, entries []Entry) error

	// Load returns the persisted memory snapshot of the given agent.
	Load(ctx context.Context, agentID uuid.UUID) ([]Entry, error)
}

// A Manager provides the memory Links of all agents.
type Manager struct {
	maxEntries int

	mux   sync.RWMutex
	links map[uuid.UUID]*Link
}

// NewManager returns a Manager whose Links hold up to maxEntries Entries
// each. A maxEntries lower than 1 defaults to DefaultMaxEntries.
func NewManager(maxEntries int) *Manager {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &Manager{
		maxEntries: maxEntries,
		links:      make(map[uuid.UUID]*Link),
	}
}

// Link returns the memory Link of the given agent, creating it if needed.
func (m *Manager) Link(agentID uuid.UUID) *Link {
	m.mux.RLock()
	l, ok := m.links[agentID]
	m.mux.RUnlock()
	if ok {
		return l
	}

	m.mux.Lock()
	defer m.mux.Unlock()
	if l, ok := m.links[agentID]; ok {
		return l
	}
	l = NewLink(agentID, m.maxEntries)
	m.links[agentID] = l

	return l
}

// Remove removes the memory Link of the given agent.
func (m *Manager) Remove(agentID uuid.UUID) {
	m.mux.Lock()
	defer m.mux.Unlock()
	delete(m.links, agentID)
}

// Cleanup removes expired Entries from all Links and returns how many were
// removed.
func (m *Manager) Cleanup() int {
	m.mux.RLock()
	links := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.mux.RUnlock()

	var removed int
	for _, l := range links {
		removed += l.Cleanup()
	}

	return removed
}

// Archive persists the memory snapshots of all Links into the Archive.
func (m *Manager) Archive(ctx context.Context, archive Archive) error {
	m.mux.RLock()
	links := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.mux.RUnlock()

	for _, l := range links {
		if err := archive.Save(ctx, l.AgentID(), l.Export()); err != nil {
			return fmt.Errorf("archive memory of agent %q: %w", l.AgentID(), err)
		}
	}

	return nil
}

// Restore imports the persisted memory snapshot of the given agent into its
// Link and returns how many Entries were imported.
func (m *Manager) Restore(ctx context.Context, archive Archive, agentID uuid.UUID) (int, error) {
	entries, err := archive.Load(ctx, agentID)
	if err != nil {
		return 0, fmt.Errorf("load memory of agent %q: %w", agentID, err)
	}
	return m.Link(agentID).Import(entries), nil
}

// GlobalStats are usage statistics over all Links of a Manager.
type GlobalStats struct {
	Agents  int             `json:"agents"`
	Entries int             `json:"entries"`
	PerLink map[string]Stats `json:"perAgent"`
}

// GlobalStats returns usage statistics over all Links.
func (m *Manager) GlobalStats() GlobalStats {
	m.mux.RLock()
	links := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.mux.RUnlock()

	stats := GlobalStats{PerLink: make(map[string]Stats)}
	for _, l := range links {
		s := l.Stats()
		stats.Agents++
		stats.Entries += s.Entries
		stats.PerLink[l.AgentID().String()] = s
	}

	return stats
}
