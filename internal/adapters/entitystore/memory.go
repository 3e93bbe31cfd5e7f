// Package entitystore implements the primary entity store the leaderboard
// reader and the recompute job look entities up in.
package entitystore

import (
	"context"
	"sync"

	"github.com/okian/hotboard/internal/domain/model"
)

// Memory is a map-backed entity store for single-process deployments and tests.
type Memory struct {
	mu       sync.RWMutex
	entities map[string]model.Entity
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entities: make(map[string]model.Entity)}
}

// Upsert inserts or replaces entities.
func (m *Memory) Upsert(_ context.Context, entities ...model.Entity) error {
	for _, e := range entities {
		if e.ID == "" {
			return ErrEmptyID
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		m.entities[e.ID] = e
	}
	return nil
}

// Delete removes an entity. Deleting a missing id is a no-op.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entities, id)
	m.mu.Unlock()
	return nil
}

// FindByIDs returns the entities that exist among ids, in no particular order.
func (m *Memory) FindByIDs(_ context.Context, ids []string) ([]model.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.entities[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Count returns the number of stored entities.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
