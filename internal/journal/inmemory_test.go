package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chainpayroll/payroll/internal/registry"
)

func TestInMemoryJournal_PendingSkipsReleased(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	if _, err := j.Record(ctx, Rotation{Role: registry.RoleEmployee, PreviousCID: "QmA", CurrentCID: "QmB", State: StateReleased, CreatedAt: base}); err != nil {
		t.Fatalf("record released: %v", err)
	}
	stale, err := j.Record(ctx, Rotation{Role: registry.RoleEmployee, PreviousCID: "QmB", CurrentCID: "QmC", State: StateStale, CreatedAt: base.Add(time.Minute)})
	if err != nil {
		t.Fatalf("record stale: %v", err)
	}
	orphan, err := j.Record(ctx, Rotation{Role: registry.RoleEmployee, PreviousCID: "QmC", CurrentCID: "QmD", State: StateOrphaned, CreatedAt: base.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("record orphan: %v", err)
	}

	pending, err := j.Pending(ctx, Cursor{}, 0)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != stale.ID || pending[1].ID != orphan.ID {
		t.Fatalf("unexpected pending rotations: %+v", pending)
	}
	if pending[0].Leftover() != "QmB" || pending[1].Leftover() != "QmD" {
		t.Fatalf("unexpected leftovers %s %s", pending[0].Leftover(), pending[1].Leftover())
	}

	if err := j.Resolve(ctx, stale.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	pending, _ = j.Pending(ctx, Cursor{}, 0)
	if len(pending) != 1 || pending[0].ID != orphan.ID {
		t.Fatalf("expected only orphan left, got %+v", pending)
	}

	if err := j.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryJournal_ConcurrentRecords(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := j.Record(ctx, Rotation{PreviousCID: fmt.Sprintf("Qm%d", i), State: StateStale}); err != nil {
				t.Errorf("record %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	pending, err := j.Pending(ctx, Cursor{}, 5)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 5 {
		t.Fatalf("expected limit to apply, got %d", len(pending))
	}
}

func TestInMemoryJournal_PendingPagesPastCursor(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		r, err := j.Record(ctx, Rotation{Role: registry.RoleEmployee, PreviousCID: fmt.Sprintf("Qm%d", i), State: StateStale, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		ids = append(ids, r.ID)
	}

	first, err := j.Pending(ctx, Cursor{}, 2)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 || first[0].ID != ids[0] || first[1].ID != ids[1] {
		t.Fatalf("unexpected first page %+v", first)
	}

	second, err := j.Pending(ctx, first[1].Cursor(), 2)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 2 || second[0].ID != ids[2] || second[1].ID != ids[3] {
		t.Fatalf("unexpected second page %+v", second)
	}

	last, err := j.Pending(ctx, second[1].Cursor(), 2)
	if err != nil {
		t.Fatalf("last page: %v", err)
	}
	if len(last) != 1 || last[0].ID != ids[4] {
		t.Fatalf("unexpected last page %+v", last)
	}
}

func TestCursorOrdersByTimeThenID(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if !(Cursor{}).Before(Cursor{CreatedAt: at, ID: "a"}) {
		t.Fatalf("zero cursor must come first")
	}
	if !(Cursor{CreatedAt: at, ID: "a"}).Before(Cursor{CreatedAt: at, ID: "b"}) {
		t.Fatalf("equal times must fall back to id order")
	}
	if (Cursor{CreatedAt: at.Add(time.Second), ID: "a"}).Before(Cursor{CreatedAt: at, ID: "b"}) {
		t.Fatalf("later time must sort after")
	}
}
