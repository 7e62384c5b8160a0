// Package state holds the published view of the current ingestion.
// A snapshot is computed fresh during ingestion and swapped in whole,
// so readers never observe a half-built state.
package state

import (
	"sync"
	"time"

	"github.com/docs-agent/backend/internal/extract"
)

// Snapshot is the immutable result of one ingestion. Callers must not
// mutate a snapshot after it has been published.
type Snapshot struct {
	Ready       bool
	Title       string
	RawText     string
	Endpoints   []extract.Endpoint
	BaseURL     string
	BaseURLs    []string
	CurlCount   int
	ChunkCount  int
	DBSizeMB    float64
	Degraded    bool
	LastUpdated time.Time
}

// EndpointCount is a convenience over len(Endpoints).
func (s *Snapshot) EndpointCount() int {
	if s == nil {
		return 0
	}
	return len(s.Endpoints)
}

// Manager guards the published snapshot.
type Manager struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewManager() *Manager {
	return &Manager{snap: &Snapshot{}}
}

// Publish replaces the current snapshot.
func (m *Manager) Publish(s *Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
}

// Current returns the published snapshot. The snapshot is shared;
// treat it as read-only.
func (m *Manager) Current() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Reset publishes an empty, not-ready snapshot.
func (m *Manager) Reset() {
	m.Publish(&Snapshot{})
}
