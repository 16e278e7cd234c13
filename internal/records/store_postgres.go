package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"omnigest/internal/schema"
	"omnigest/pkg/domain"
	txcontext "omnigest/pkg/platform/tx"
)

// PostgresStore persists canonical records.
//
// Expected table:
//
//	clinical_records (
//	    record_id     uuid primary key,
//	    fields        jsonb       not null,
//	    disposition   text        not null,
//	    status_reason text        not null,
//	    updated_at    timestamptz not null default now()
//	)
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// fieldPayload round-trips one canonical cell including its recovery
// provenance.
type fieldPayload struct {
	Value     string `json:"value"`
	Present   bool   `json:"present"`
	Recovered bool   `json:"recovered,omitempty"`
}

func marshalFields(rec *schema.CanonicalRecord) ([]byte, error) {
	payload := make(map[string]fieldPayload, len(schema.Keys()))
	for _, key := range schema.Keys() {
		f := rec.Get(key)
		payload[string(key)] = fieldPayload{
			Value:     f.Value,
			Present:   f.Present,
			Recovered: f.RecoveredViaFallback,
		}
	}
	return json.Marshal(payload)
}

func unmarshalFields(raw []byte, rec *schema.CanonicalRecord) error {
	var payload map[string]fieldPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	for _, key := range schema.Keys() {
		f, ok := payload[string(key)]
		if !ok || !f.Present {
			continue
		}
		if f.Recovered {
			rec.SetRecovered(key, f.Value)
		} else {
			rec.Overwrite(key, f.Value)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *schema.CanonicalRecord) error {
	fields, err := marshalFields(rec)
	if err != nil {
		return fmt.Errorf("marshal record fields: %w", err)
	}

	query := `
		INSERT INTO clinical_records (record_id, fields, disposition, status_reason, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (record_id) DO UPDATE SET
			fields = EXCLUDED.fields,
			disposition = EXCLUDED.disposition,
			status_reason = EXCLUDED.status_reason,
			updated_at = now()
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		rec.ID.String(), fields, string(rec.Disposition), rec.StatusReason); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]schema.CanonicalRecord, error) {
	query := `
		SELECT record_id, fields, disposition, status_reason
		FROM clinical_records
		ORDER BY updated_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []schema.CanonicalRecord
	for rows.Next() {
		var (
			id          string
			fields      []byte
			disposition string
			reason      string
		)
		if err := rows.Scan(&id, &fields, &disposition, &reason); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec := schema.NewCanonicalRecord()
		recID, err := domain.ParseRecordID(id)
		if err != nil {
			return nil, fmt.Errorf("parse record id: %w", err)
		}
		rec.ID = recID
		if err := unmarshalFields(fields, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record fields: %w", err)
		}
		rec.Disposition = domain.Disposition(disposition)
		rec.StatusReason = reason
		out = append(out, rec)
	}
	return out, rows.Err()
}

// HardDeletePurged removes PURGED rows and reports the count.
func (s *PostgresStore) HardDeletePurged(ctx context.Context) (int64, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM clinical_records WHERE disposition = $1`, string(domain.DispositionPurged))
	if err != nil {
		return 0, fmt.Errorf("hard delete purged records: %w", err)
	}
	return res.RowsAffected()
}
