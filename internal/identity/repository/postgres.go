package repository

import (
	"context"
	"database/sql"
	"errors"

	"cuidame-health/backend/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndProvider returns the identity for the given user and provider, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error) {
	var (
		i          domain.Identity
		prov       string
		providerID sql.NullString
		hash       sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, provider_id, password_hash, created_at
		FROM identities
		WHERE user_id = $1 AND provider = $2`, userID, string(provider)).
		Scan(&i.ID, &i.UserID, &prov, &providerID, &hash, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Provider = domain.IdentityProvider(prov)
	i.ProviderID = providerID.String
	i.PasswordHash = hash.String
	return &i, nil
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (id, user_id, provider, provider_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		i.ID, i.UserID, string(i.Provider),
		sql.NullString{String: i.ProviderID, Valid: i.ProviderID != ""},
		sql.NullString{String: i.PasswordHash, Valid: i.PasswordHash != ""},
		i.CreatedAt)
	return err
}

// UpdatePasswordHash replaces the stored hash for the identity with the given id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE identities SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return err
}
