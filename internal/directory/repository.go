package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainpayroll/payroll/internal/registry"
	"github.com/chainpayroll/payroll/internal/wallet"
)

// Repository persists directory entries.
type Repository interface {
	Upsert(ctx context.Context, entry Entry) error
	Find(ctx context.Context, addr wallet.Address, role registry.Role) (Entry, error)
	// FindByEmail lists the entries registered with email, compared
	// case-insensitively, oldest first.
	FindByEmail(ctx context.Context, email string) ([]Entry, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed directory.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts or replaces the entry for (address, role).
func (r *PostgresRepository) Upsert(ctx context.Context, entry Entry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO directory_entries (address, role, content_hash, display_name, email, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (address, role) DO UPDATE
        SET content_hash = EXCLUDED.content_hash,
            display_name = EXCLUDED.display_name,
            email = EXCLUDED.email,
            updated_at = EXCLUDED.updated_at`,
		lower(entry.Address), string(entry.Role), entry.ContentHash, entry.DisplayName, entry.Email, entry.UpdatedAt.UTC())
	return err
}

// Find fetches the entry for an identity in a role.
func (r *PostgresRepository) Find(ctx context.Context, addr wallet.Address, role registry.Role) (Entry, error) {
	row := r.db.QueryRow(ctx, `SELECT content_hash, display_name, email, updated_at
        FROM directory_entries WHERE address = $1 AND role = $2`, lower(addr), string(role))
	entry := Entry{Address: addr, Role: role}
	if err := row.Scan(&entry.ContentHash, &entry.DisplayName, &entry.Email, &entry.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}

// FindByEmail lists every identity registered under email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) ([]Entry, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT address, role, content_hash, display_name, email, updated_at
        FROM directory_entries WHERE lower(email) = lower($1)
        ORDER BY updated_at ASC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			address string
			role    string
			entry   Entry
		)
		if err := rows.Scan(&address, &role, &entry.ContentHash, &entry.DisplayName, &entry.Email, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entry.Address, err = wallet.ParseAddress(address)
		if err != nil {
			return nil, err
		}
		entry.Role = registry.Role(role)
		entry.UpdatedAt = entry.UpdatedAt.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}
