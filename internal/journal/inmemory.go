package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryJournal struct {
	mu        sync.RWMutex
	rotations map[string]Rotation
}

// NewInMemory creates a concurrency-safe journal useful for development and tests.
func NewInMemory() Journal {
	return &inMemoryJournal{rotations: make(map[string]Rotation)}
}

func (j *inMemoryJournal) Record(_ context.Context, rotation Rotation) (Rotation, error) {
	if rotation.ID == "" {
		rotation.ID = uuid.NewString()
	}
	if rotation.CreatedAt.IsZero() {
		rotation.CreatedAt = time.Now().UTC()
	}
	if rotation.State == StateReleased && rotation.ResolvedAt == nil {
		now := rotation.CreatedAt
		rotation.ResolvedAt = &now
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.rotations[rotation.ID] = rotation
	return rotation, nil
}

func (j *inMemoryJournal) Pending(_ context.Context, after Cursor, limit int) ([]Rotation, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Rotation, 0)
	for _, r := range j.rotations {
		if r.ResolvedAt == nil && r.Leftover() != "" && after.Before(r.Cursor()) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Cursor().Before(out[b].Cursor()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (j *inMemoryJournal) Resolve(_ context.Context, id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	r, ok := j.rotations[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	r.ResolvedAt = &now
	j.rotations[id] = r
	return nil
}
