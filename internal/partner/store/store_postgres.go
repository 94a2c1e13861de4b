package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ingestgate/internal/partner/models"
	"ingestgate/internal/platform/postgres"
	id "ingestgate/pkg/domain"
	"ingestgate/pkg/platform/sentinel"
)

// PostgresStore reads partners and credentials provisioned by the
// partner-management system.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindCredentialByKeyID(ctx context.Context, keyID string) (*models.Credential, error) {
	query := `
		SELECT c.id, c.partner_id, c.key_id, c.secret_hash, c.revoked_at, c.created_at, p.active
		FROM partner_credentials c
		JOIN partners p ON p.id = c.partner_id
		WHERE c.key_id = $1
	`
	var (
		c         models.Credential
		credID    uuid.UUID
		partnerID uuid.UUID
		revokedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, keyID).Scan(
		&credID, &partnerID, &c.KeyID, &c.SecretHash, &revokedAt, &c.CreatedAt, &c.PartnerActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential by key id: %w", err)
	}
	c.ID = id.CredentialID(credID)
	c.PartnerID = id.PartnerID(partnerID)
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	return &c, nil
}

func (s *PostgresStore) FindPartner(ctx context.Context, partnerID id.PartnerID) (*models.Partner, error) {
	query := `SELECT id, name, active, created_at FROM partners WHERE id = $1`
	var (
		p   models.Partner
		pid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(partnerID)).Scan(&pid, &p.Name, &p.Active, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find partner: %w", err)
	}
	p.ID = id.PartnerID(pid)
	return &p, nil
}

// CreatePartner and CreateCredential exist for seeding and tests;
// provisioning proper belongs to the partner-management system.
func (s *PostgresStore) CreatePartner(ctx context.Context, p *models.Partner) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO partners (id, name, active, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(p.ID), p.Name, p.Active, p.CreatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("partner %s: %w", p.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateCredential(ctx context.Context, c *models.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO partner_credentials (id, partner_id, key_id, secret_hash, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(c.ID), uuid.UUID(c.PartnerID), c.KeyID, c.SecretHash, c.RevokedAt, c.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("key id %s: %w", c.KeyID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}
