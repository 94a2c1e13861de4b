package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ingestgate/internal/insight/models"
	"ingestgate/internal/platform/postgres"
	id "ingestgate/pkg/domain"
	"ingestgate/pkg/platform/sentinel"
)

// PostgresStore relies on the unique ingestion_event_id constraint for the
// one-insight-per-event rule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, in *models.Insight) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insights (id, ingestion_event_id, partner_id, model_name, prediction, confidence_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(in.ID), uuid.UUID(in.EventID), uuid.UUID(in.PartnerID), in.ModelName, in.Prediction, in.ConfidenceScore, in.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("insight for event %s: %w", in.EventID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEventID(ctx context.Context, partnerID id.PartnerID, eventID id.EventID) (*models.Insight, error) {
	var (
		in    models.Insight
		rowID uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, model_name, prediction, confidence_score, created_at
		FROM insights
		WHERE ingestion_event_id = $1 AND partner_id = $2
	`, uuid.UUID(eventID), uuid.UUID(partnerID)).Scan(&rowID, &in.ModelName, &in.Prediction, &in.ConfidenceScore, &in.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find insight: %w", err)
	}
	in.ID = id.InsightID(rowID)
	in.EventID = eventID
	in.PartnerID = partnerID
	return &in, nil
}
