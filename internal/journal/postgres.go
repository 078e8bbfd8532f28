package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// PostgresJournal persists rotations in PostgreSQL.
type PostgresJournal struct {
	db *pgxpool.Pool
}

// NewPostgresJournal constructs a Postgres-backed journal.
func NewPostgresJournal(db *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// Record inserts the rotation and returns it with id and timestamps filled.
func (j *PostgresJournal) Record(ctx context.Context, rotation Rotation) (Rotation, error) {
	if rotation.ID == "" {
		rotation.ID = uuid.NewString()
	}
	id, err := uuid.Parse(rotation.ID)
	if err != nil {
		return Rotation{}, fmt.Errorf("rotation id: %w", err)
	}
	if rotation.CreatedAt.IsZero() {
		rotation.CreatedAt = time.Now().UTC()
	}
	if rotation.State == StateReleased && rotation.ResolvedAt == nil {
		now := rotation.CreatedAt
		rotation.ResolvedAt = &now
	}

	_, err = j.db.Exec(ctx, `INSERT INTO cid_rotations (id, address, role, payroll_record_id, previous_cid, current_cid, state, created_at, resolved_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, rotation.Address.String(), string(rotation.Role), int64(rotation.PayrollRecordID), rotation.PreviousCID, rotation.CurrentCID,
		string(rotation.State), rotation.CreatedAt.UTC(), rotation.ResolvedAt)
	if err != nil {
		return Rotation{}, err
	}
	return rotation, nil
}

// Pending returns unresolved stale and orphaned rotations after the cursor,
// oldest first.
func (j *PostgresJournal) Pending(ctx context.Context, after Cursor, limit int) ([]Rotation, error) {
	if limit <= 0 {
		limit = 100
	}
	afterID := uuid.Nil
	if after.ID != "" {
		parsed, err := uuid.Parse(after.ID)
		if err != nil {
			return nil, fmt.Errorf("cursor id: %w", err)
		}
		afterID = parsed
	}
	rows, err := j.db.Query(ctx, `SELECT id, address, role, payroll_record_id, previous_cid, current_cid, state, created_at
        FROM cid_rotations
        WHERE resolved_at IS NULL AND state IN ('stale', 'orphaned')
          AND (created_at, id) > ($1, $2)
        ORDER BY created_at ASC, id ASC
        LIMIT $3`, after.CreatedAt.UTC(), afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rotation
	for rows.Next() {
		var (
			id       uuid.UUID
			address  string
			role     string
			recordID int64
			state    string
			r        Rotation
		)
		if err := rows.Scan(&id, &address, &role, &recordID, &r.PreviousCID, &r.CurrentCID, &state, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.PayrollRecordID = uint64(recordID)
		r.ID = id.String()
		r.Address = wallet.Address(address)
		r.Role = registry.Role(role)
		r.State = State(state)
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Resolve marks the rotation released.
func (j *PostgresJournal) Resolve(ctx context.Context, id string) error {
	rotationID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := j.db.Exec(ctx, `UPDATE cid_rotations SET resolved_at = $1 WHERE id = $2`, time.Now().UTC(), rotationID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
