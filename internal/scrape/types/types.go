package types

import (
	"context"

	"bidwatch-engine/internal/domain"
)

// ScrapeResult is one adapter's contribution to a run.
type ScrapeResult struct {
	Source    string
	Contracts []domain.Contract
}

// Adapter is the per-source contract. Implementations own their endpoints,
// header quirks and field selection; fetching, parsing and normalization go
// through the shared collaborators. A failed source returns an empty result
// plus the error — adapters never panic and never abort the run.
type Adapter interface {
	Name() string
	Scrape(ctx context.Context) (ScrapeResult, error)
}
