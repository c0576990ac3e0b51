// ABOUTME: Tenant registry persistence: per-organization credentials.
// ABOUTME: Secrets are stored as bcrypt hashes, never plaintext.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateTenant persists a tenant. Names are unique.
func (s *SQLiteStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	if tenant.Name == "" {
		return fmt.Errorf("tenant name is required")
	}
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, secret_hash, created_at) VALUES (?, ?, ?, ?)`,
		tenant.ID, tenant.Name, tenant.SecretHash, tenant.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateTenant
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}

	s.logger.Info("tenant created", "tenant_id", tenant.ID, "name", tenant.Name)
	return nil
}

// GetTenant resolves a tenant by id. Returns ErrNotFound for unknown ids.
func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, secret_hash, created_at FROM tenants WHERE id = ?`, id)

	tenant := &Tenant{}
	err := row.Scan(&tenant.ID, &tenant.Name, &tenant.SecretHash, &tenant.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying tenant: %w", err)
	}
	return tenant, nil
}
