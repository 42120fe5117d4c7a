package limiter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	fails        int
	blockedUntil time.Time
	updatedAt    time.Time
}

// Memory is a process-local limiter for single-node deployments.
type Memory struct {
	mu      sync.Mutex
	set     Settings
	entries map[string]*entry
	now     func() time.Time
}

// NewMemory constructs an in-memory limiter.
func NewMemory(s Settings) *Memory {
	return &Memory{set: s, entries: make(map[string]*entry), now: time.Now}
}

func (m *Memory) Allow(_ context.Context, peer []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[string(peer)]
	if !ok {
		return true, 0, nil
	}
	if now := m.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (m *Memory) Failure(_ context.Context, peer []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.gc(now)

	e, ok := m.entries[string(peer)]
	switch {
	case !ok:
		e = &entry{}
		m.entries[string(peer)] = e
		fallthrough
	case now.Sub(e.updatedAt) > m.set.Window:
		e.fails = 0
	}
	e.fails++
	e.updatedAt = now
	if e.fails >= m.set.MaxFails {
		e.blockedUntil = now.Add(m.set.BlockFor)
		return true, m.set.BlockFor, nil
	}
	return false, 0, nil
}

// gc drops entries that are neither blocked nor inside the window.
func (m *Memory) gc(now time.Time) {
	for k, e := range m.entries {
		if !e.blockedUntil.After(now) && now.Sub(e.updatedAt) > m.set.Window {
			delete(m.entries, k)
		}
	}
}
