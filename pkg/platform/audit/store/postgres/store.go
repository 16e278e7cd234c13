package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"omnigest/pkg/domain"
	audit "omnigest/pkg/platform/audit"
	txcontext "omnigest/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Entries are written to the audit_outbox table and published to Kafka by
// the relay; the table doubles as the local read model until rows are
// retention-expired by the external retention process.
//
// Expected table:
//
//	audit_outbox (
//	    request_id   uuid primary key,
//	    payload      jsonb       not null,
//	    created_at   timestamptz not null,
//	    published_at timestamptz
//	)
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// entryPayload is the JSON shape persisted and published. Field names are
// the externally specified audit layout.
type entryPayload struct {
	RequestID               string `json:"request_id"`
	Timestamp               string `json:"timestamp"`
	Action                  string `json:"action"`
	SubjectReference        string `json:"subject_reference"`
	Reason                  string `json:"reason,omitempty"`
	StatutoryRetentionUntil string `json:"statutory_retention_until"`
}

func toPayload(entry audit.Entry) entryPayload {
	return entryPayload{
		RequestID:               entry.RequestID.String(),
		Timestamp:               entry.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:                  string(entry.Action),
		SubjectReference:        entry.SubjectReference,
		Reason:                  entry.Reason,
		StatutoryRetentionUntil: entry.StatutoryRetentionUntil.UTC().Format(time.RFC3339),
	}
}

func fromPayload(p entryPayload) (audit.Entry, error) {
	reqID, err := domain.ParseRequestID(p.RequestID)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("parse request id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("parse timestamp: %w", err)
	}
	until, err := time.Parse(time.RFC3339, p.StatutoryRetentionUntil)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("parse retention horizon: %w", err)
	}
	return audit.Entry{
		RequestID:               reqID,
		Timestamp:               ts,
		Action:                  audit.Action(p.Action),
		SubjectReference:        p.SubjectReference,
		Reason:                  p.Reason,
		StatutoryRetentionUntil: until,
	}, nil
}

// Append writes one entry to the outbox. The insert is atomic; a failed
// append leaves no partial row.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	payloadBytes, err := json.Marshal(toPayload(entry))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (request_id, payload, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		entry.RequestID.String(), payloadBytes, entry.Timestamp.UTC()); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT payload FROM audit_outbox
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		var p entryPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		entry, err := fromPayload(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Unpublished returns up to limit outbox rows not yet relayed to Kafka,
// oldest first, as (request_id, payload) pairs.
func (s *Store) Unpublished(ctx context.Context, limit int) ([]audit.OutboxRow, error) {
	query := `
		SELECT request_id, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished audit rows: %w", err)
	}
	defer rows.Close()

	var out []audit.OutboxRow
	for rows.Next() {
		var row audit.OutboxRow
		if err := rows.Scan(&row.RequestID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished stamps outbox rows as relayed.
func (s *Store) MarkPublished(ctx context.Context, requestIDs []string, at time.Time) error {
	if len(requestIDs) == 0 {
		return nil
	}
	query := `
		UPDATE audit_outbox SET published_at = $1
		WHERE request_id = ANY($2)
	`
	if _, err := s.db.ExecContext(ctx, query, at.UTC(), requestIDs); err != nil {
		return fmt.Errorf("mark audit rows published: %w", err)
	}
	return nil
}
