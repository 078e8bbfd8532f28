package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

func TestUpsertAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	addr := wallet.MustParseAddress("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")

	if _, err := repo.Find(ctx, addr, registry.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.Upsert(ctx, Entry{Address: addr, Role: registry.RoleAdmin, ContentHash: "QmFirst", DisplayName: "Ada"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, Entry{Address: addr, Role: registry.RoleAdmin, ContentHash: "QmSecond", DisplayName: "Ada"}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	entry, err := repo.Find(ctx, wallet.Address("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"), registry.RoleAdmin)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.ContentHash != "QmSecond" {
		t.Fatalf("expected latest hash, got %s", entry.ContentHash)
	}
	if entry.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at to be stamped")
	}

	if _, err := repo.Find(ctx, addr, registry.RoleEmployee); !errors.Is(err, ErrNotFound) {
		t.Fatalf("roles are indexed separately, got %v", err)
	}
}

func TestFindByEmail(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	ada := wallet.MustParseAddress("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")
	grace := wallet.MustParseAddress("0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb")
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Address: ada, Role: registry.RoleEmployee, ContentHash: "QmAda", Email: "ada@example.com", UpdatedAt: base},
		{Address: ada, Role: registry.RoleAdmin, ContentHash: "QmAdaAdmin", Email: "ada@example.com", UpdatedAt: base.Add(time.Hour)},
		{Address: grace, Role: registry.RoleEmployee, ContentHash: "QmGrace", Email: "grace@example.com", UpdatedAt: base},
	}
	for _, e := range entries {
		if err := repo.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	found, err := repo.FindByEmail(ctx, " ADA@example.com ")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if len(found) != 2 || found[0].Role != registry.RoleEmployee || found[1].Role != registry.RoleAdmin {
		t.Fatalf("unexpected entries %+v", found)
	}

	found, err = repo.FindByEmail(ctx, "nobody@example.com")
	if err != nil || len(found) != 0 {
		t.Fatalf("expected no entries, got %+v %v", found, err)
	}
	found, err = repo.FindByEmail(ctx, "")
	if err != nil || len(found) != 0 {
		t.Fatalf("blank email matches nothing, got %+v %v", found, err)
	}
}
