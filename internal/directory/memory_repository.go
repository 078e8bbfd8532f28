package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

type memoryKey struct {
	address string
	role    registry.Role
}

type memoryRepository struct {
	mu      sync.RWMutex
	entries map[memoryKey]Entry
}

// NewMemoryRepository builds an in-memory directory for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{entries: make(map[memoryKey]Entry)}
}

func (r *memoryRepository) Upsert(_ context.Context, entry Entry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[memoryKey{address: lower(entry.Address), role: entry.Role}] = entry
	return nil
}

func (r *memoryRepository) Find(_ context.Context, addr wallet.Address, role registry.Role) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[memoryKey{address: lower(addr), role: role}]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) ([]Entry, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for _, entry := range r.entries {
		if strings.EqualFold(entry.Email, email) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.Before(out[b].UpdatedAt) })
	return out, nil
}
