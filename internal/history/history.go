// Package history remembers which targets have already been handled so a
// restarted run does not comment twice.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/thinkscotty/outreach/internal/models"
)

// Tracker is a durable processed-target store.
type Tracker interface {
	Seen(ctx context.Context, t models.Target) (bool, error)
	Mark(ctx context.Context, t models.Target, outcome string) error
}

// Memory is an in-process Tracker. It forgets everything on exit.
type Memory struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]string)}
}

func (m *Memory) Seen(_ context.Context, t models.Target) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[t.Key()]
	return ok, nil
}

func (m *Memory) Mark(_ context.Context, t models.Target, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[t.Key()] = outcome
	return nil
}

// Store is the subset of the database the SQLite tracker needs.
type Store interface {
	IsProcessed(ctx context.Context, p models.Platform, targetID string) (bool, error)
	MarkProcessed(ctx context.Context, p models.Platform, targetID, url, outcome string) error
}

// SQLite tracks targets in the processed_targets table.
type SQLite struct {
	store Store
}

func NewSQLite(store Store) *SQLite {
	return &SQLite{store: store}
}

func (s *SQLite) Seen(ctx context.Context, t models.Target) (bool, error) {
	return s.store.IsProcessed(ctx, t.Platform, t.ID)
}

func (s *SQLite) Mark(ctx context.Context, t models.Target, outcome string) error {
	return s.store.MarkProcessed(ctx, t.Platform, t.ID, t.URL, outcome)
}

// Config selects and configures the tracker backend.
type Config struct {
	// Backend is "sqlite" (default), "redis" or "memory".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "sqlite", "memory":
		return nil
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("history.redis.address is required for the redis backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown history backend %q", c.Backend)
	}
}
