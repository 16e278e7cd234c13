// Package records persists dispositioned canonical records. Storage honors
// erasure: PURGED rows carry sentinels only and can be hard-deleted in bulk
// once downstream consumers have seen the disposition.
package records

import (
	"context"

	"omnigest/internal/schema"
)

// Store is the persistence contract for the ingest pipeline's output.
type Store interface {
	// Save upserts a record by its record ID.
	Save(ctx context.Context, rec *schema.CanonicalRecord) error

	// List returns all stored records in unspecified order.
	List(ctx context.Context) ([]schema.CanonicalRecord, error)

	// HardDeletePurged removes every row whose disposition is PURGED and
	// reports how many were deleted. Sentinel-only rows hold no PII, but
	// hard deletion keeps the store from accumulating tombstones.
	HardDeletePurged(ctx context.Context) (int64, error)
}
