package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "ingestgate/pkg/platform/audit"
)

// Store writes security events to the security_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Write inserts the batch in one round trip. Duplicate ids are ignored so a
// retried flush does not double-record.
func (s *Store) Write(ctx context.Context, events []audit.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}
	n := len(events)
	var (
		ids        = make([]string, n)
		occurredAt = make([]string, n)
		kinds      = make([]string, n)
		severities = make([]string, n)
		partnerIDs = make([]string, n)
		ips        = make([]string, n)
		userAgents = make([]string, n)
		classes    = make([]string, n)
		bots       = make([]bool, n)
		details    = make([]string, n)
		requestIDs = make([]string, n)
	)
	for i, e := range events {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		ids[i] = e.ID.String()
		occurredAt[i] = e.Timestamp.UTC().Format(time.RFC3339Nano)
		kinds[i] = string(e.Kind)
		severities[i] = string(e.Severity)
		partnerIDs[i] = e.PartnerID
		ips[i] = e.IP
		userAgents[i] = e.UserAgent
		classes[i] = e.ClientClass
		bots[i] = e.Bot
		details[i] = e.Detail
		requestIDs[i] = e.RequestID
	}

	query := `
		INSERT INTO security_events (
			id, occurred_at, kind, severity, partner_id, ip,
			user_agent, client_class, bot, detail, request_id
		)
		SELECT * FROM unnest(
			$1::uuid[], $2::timestamptz[], $3::text[], $4::text[], $5::text[], $6::text[],
			$7::text[], $8::text[], $9::boolean[], $10::text[], $11::text[]
		)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		pq.Array(ids),
		pq.Array(occurredAt),
		pq.Array(kinds),
		pq.Array(severities),
		pq.Array(partnerIDs),
		pq.Array(ips),
		pq.Array(userAgents),
		pq.Array(classes),
		pq.Array(bots),
		pq.Array(details),
		pq.Array(requestIDs),
	)
	if err != nil {
		return fmt.Errorf("insert security events batch: %w", err)
	}
	return nil
}

// ListRecent returns the newest limit events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.SecurityEvent, error) {
	query := `
		SELECT id, occurred_at, kind, severity, partner_id, ip,
			   user_agent, client_class, bot, detail, request_id
		FROM security_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	var events []audit.SecurityEvent
	for rows.Next() {
		var (
			e        audit.SecurityEvent
			kind     string
			severity string
		)
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &kind, &severity, &e.PartnerID, &e.IP,
			&e.UserAgent, &e.ClientClass, &e.Bot, &e.Detail, &e.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		e.Kind = audit.Kind(kind)
		e.Severity = audit.Severity(severity)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security events: %w", err)
	}
	return events, nil
}
