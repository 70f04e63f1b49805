package store

import (
	"context"

	"bidwatch-engine/internal/domain"
)

// UpsertResult reports what one bulk upsert actually did.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Upserter is the engine's one storage operation: insert-or-update keyed by
// (region_code, reference_number). On conflict only the mutable field set
// changes — title, due_date, link, issuing_body, last_seen_at — so
// fetched_at and source_id keep first-run provenance.
type Upserter interface {
	UpsertContracts(ctx context.Context, cs []domain.Contract) (UpsertResult, error)
	Close() error
}
