// Package journal records content hash rotations so that payloads left
// pinned by a partial failure can be released later.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// ErrNotFound is returned by Resolve for unknown rotation ids.
var ErrNotFound = errors.New("rotation not found")

// State describes what is left over from a rotation.
type State string

const (
	// StateReleased means nothing is left pinned.
	StateReleased State = "released"
	// StateStale means the registry moved to CurrentCID but PreviousCID is still pinned.
	StateStale State = "stale"
	// StateOrphaned means CurrentCID was uploaded but never committed and is still pinned.
	StateOrphaned State = "orphaned"
)

// Rotation is one attempted replacement of a record's content hash. A
// non-zero PayrollRecordID means the content belongs to that payroll record
// rather than to the registration of Address in Role.
type Rotation struct {
	ID              string
	Address         wallet.Address
	Role            registry.Role
	PayrollRecordID uint64
	PreviousCID     string
	CurrentCID      string
	State           State
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

// Cursor is a position in creation order. The zero Cursor is the start.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Cursor returns r's position in creation order.
func (r Rotation) Cursor() Cursor {
	return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

// Before reports whether c sorts before other.
func (c Cursor) Before(other Cursor) bool {
	if !c.CreatedAt.Equal(other.CreatedAt) {
		return c.CreatedAt.Before(other.CreatedAt)
	}
	return c.ID < other.ID
}

// Leftover returns the CID that still needs unpinning, if any.
func (r Rotation) Leftover() string {
	switch r.State {
	case StateStale:
		return r.PreviousCID
	case StateOrphaned:
		return r.CurrentCID
	default:
		return ""
	}
}

// Journal persists rotations.
type Journal interface {
	Record(ctx context.Context, rotation Rotation) (Rotation, error)
	// Pending lists unresolved stale and orphaned rotations positioned
	// after the cursor, oldest first.
	Pending(ctx context.Context, after Cursor, limit int) ([]Rotation, error)
	// Resolve marks a rotation released.
	Resolve(ctx context.Context, id string) error
}
