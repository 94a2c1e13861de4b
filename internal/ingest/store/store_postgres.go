package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"ingestgate/internal/ingest/models"
	"ingestgate/internal/platform/postgres"
	id "ingestgate/pkg/domain"
	"ingestgate/pkg/platform/sentinel"
)

// PostgresStore persists events in ingestion_events with the payload as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, event *models.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingestion_events (id, partner_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(event.ID), uuid.UUID(event.PartnerID), string(event.EventType), payload, event.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("event %s: %w", event.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, partnerID id.PartnerID, eventID id.EventID) (*models.Event, error) {
	var (
		eventType string
		payload   []byte
		event     models.Event
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT event_type, payload, created_at
		FROM ingestion_events
		WHERE id = $1 AND partner_id = $2
	`, uuid.UUID(eventID), uuid.UUID(partnerID)).Scan(&eventType, &payload, &event.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}

	event.ID = eventID
	event.PartnerID = partnerID
	event.EventType = models.EventType(eventType)
	event.Payload, err = models.DecodePayload(event.EventType, payload)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
