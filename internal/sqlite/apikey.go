package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/ngoboard/internal/auth"
	"github.com/rpggio/ngoboard/internal/repository"
)

// APIKeyRepository stores hashed API keys and resolves them to identities.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Add stores the hash of token for the given identity.
func (r *APIKeyRepository) Add(ctx context.Context, token string, id auth.Identity, description string) error {
	if !id.Role.Valid() {
		return fmt.Errorf("invalid role %q", id.Role)
	}
	if id.Role == auth.RoleOrganization && id.OrgID == "" {
		return fmt.Errorf("organization keys need an org id")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, org_id, role, created_at, description)
		VALUES (?, ?, ?, ?, ?)
	`, auth.HashKey(token), id.OrgID, id.Role, time.Now(), description)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveIdentity implements auth.Resolver.
func (r *APIKeyRepository) ResolveIdentity(ctx context.Context, token string) (auth.Identity, error) {
	hash := auth.HashKey(token)

	var id auth.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT org_id, role FROM api_keys WHERE key_hash = ?`, hash,
	).Scan(&id.OrgID, &id.Role)
	if err == sql.ErrNoRows {
		return auth.Identity{}, auth.ErrUnauthorized
	}
	if err != nil {
		return auth.Identity{}, fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now(), hash,
	); err != nil {
		return auth.Identity{}, fmt.Errorf("failed to touch api key: %w", err)
	}
	return id, nil
}
