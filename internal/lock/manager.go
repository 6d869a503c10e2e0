// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package lock provides advisory TTL leases over knowledge entries.
// Leases live only in process memory: they guard concurrent editing
// sessions, not durable state, so a restart simply releases everything.
package lock

import (
	"log/slog"
	"sync"
	"time"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// DefaultTTL is the lease duration used when a manager is built with a
// non-positive TTL.
const DefaultTTL = 30 * time.Minute

// Lease describes an active lock on an entry.
type Lease struct {
	EntryID   string
	Holder    string
	ExpiresAt time.Time
}

// Manager hands out exclusive per-entry leases with lazy expiry: an
// expired lease is reclaimed by whoever touches the entry next, so no
// background timer is required. Sweep exists for callers that want to
// trim the table eagerly.
type Manager struct {
	mu     sync.Mutex
	leases map[string]*Lease
	ttl    time.Duration
	logger *slog.Logger

	// now is swapped out by tests.
	now func() time.Time
}

// NewManager creates a lock manager with the given lease TTL.
func NewManager(ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		leases: make(map[string]*Lease),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Acquire takes the lease on entryID for holder. Re-acquiring a lease
// the holder already owns renews it. A live lease held by someone else
// fails with a held error carrying the current holder.
func (m *Manager) Acquire(entryID, holder string) (*Lease, error) {
	if entryID == "" || holder == "" {
		return nil, lserr.New(lserr.CodeInvalidArgument, "entry id and holder must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cur, ok := m.leases[entryID]; ok && cur.ExpiresAt.After(now) && cur.Holder != holder {
		return nil, lserr.New(lserr.CodeLockHeld,
			"entry is locked by another holder",
			lserr.FieldEntryID(entryID), lserr.FieldHolder(cur.Holder))
	}

	lease := &Lease{
		EntryID:   entryID,
		Holder:    holder,
		ExpiresAt: now.Add(m.ttl),
	}
	m.leases[entryID] = lease
	m.logger.Debug("lock acquired",
		slog.String("entry_id", entryID),
		slog.String("holder", holder),
		slog.Time("expires_at", lease.ExpiresAt))

	cp := *lease
	return &cp, nil
}

// Release drops the lease on entryID. Only the current holder of a live
// lease may release it; releasing an absent or expired lease is a no-op
// so crashed editors never wedge an entry.
func (m *Manager) Release(entryID, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.leases[entryID]
	if !ok || !cur.ExpiresAt.After(m.now()) {
		delete(m.leases, entryID)
		return nil
	}
	if cur.Holder != holder {
		return lserr.New(lserr.CodeLockNotHolder,
			"lease is held by a different holder",
			lserr.FieldEntryID(entryID), lserr.FieldHolder(cur.Holder))
	}

	delete(m.leases, entryID)
	m.logger.Debug("lock released",
		slog.String("entry_id", entryID),
		slog.String("holder", holder))
	return nil
}

// Holder returns the live lease on entryID, or nil when the entry is
// unlocked or the lease has lapsed.
func (m *Manager) Holder(entryID string) *Lease {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.leases[entryID]
	if !ok || !cur.ExpiresAt.After(m.now()) {
		return nil
	}
	cp := *cur
	return &cp
}

// Sweep removes every expired lease and reports how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	dropped := 0
	for id, lease := range m.leases {
		if !lease.ExpiresAt.After(now) {
			delete(m.leases, id)
			dropped++
		}
	}
	if dropped > 0 {
		m.logger.Debug("swept expired locks", slog.Int("count", dropped))
	}
	return dropped
}
