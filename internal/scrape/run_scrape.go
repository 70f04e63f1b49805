package scrape

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bidwatch-engine/internal/domain"
	"bidwatch-engine/internal/fetch"
	"bidwatch-engine/internal/logging"
	"bidwatch-engine/internal/scrape/types"
	"bidwatch-engine/internal/store"
)

type Options struct {
	Adapters       []types.Adapter
	Concurrency    int           // worker bound for dispatch; 0 = len(Adapters)
	AdapterTimeout time.Duration // wall clock per adapter; 0 = 5m
	Persist        bool
	Store          store.Upserter // may be nil when Persist is false
	Logger         *logging.Logger
}

// Run executes one aggregation pass: dispatch all adapters under bounded
// concurrency, reduce and validate the combined results, then upsert and
// report. Adapter failures are contained and reported in the stats; the
// only terminal error is a store-wide upsert failure.
func Run(ctx context.Context, opts Options) (*RunStats, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	timeout := opts.AdapterTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	limit := opts.Concurrency
	if limit <= 0 || limit > len(opts.Adapters) {
		limit = len(opts.Adapters)
	}

	stats := newRunStats()

	// ---- Dispatch ----

	results := make(chan types.ScrapeResult, len(opts.Adapters))
	failures := make(chan SourceError, len(opts.Adapters))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, a := range opts.Adapters {
		a := a
		g.Go(func() error {
			actx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			log.Info("adapter running", "source", a.Name())
			res, err := a.Scrape(actx)
			if err != nil {
				kind := classifyAdapterError(err)
				log.Warn("adapter failed", "source", a.Name(), "kind", kind, "err", err)
				failures <- SourceError{Source: a.Name(), Kind: kind, Message: err.Error()}
				return nil // contained: never cancel siblings
			}
			if len(res.Contracts) == 0 {
				log.Warn("adapter returned zero results", "source", a.Name())
				failures <- SourceError{Source: a.Name(), Kind: ErrKindZero, Message: "zero results"}
				return nil
			}
			log.Info("adapter done", "source", a.Name(), "contracts", len(res.Contracts))
			results <- res
			return nil
		})
	}

	_ = g.Wait()
	close(results)
	close(failures)

	for f := range failures {
		stats.addError(f.Source, f.Kind, f.Message)
	}

	// ---- Collect & Reduce ----

	collected := make([]types.ScrapeResult, 0, len(opts.Adapters))
	for res := range results {
		collected = append(collected, res)
	}
	// Completion order is non-deterministic; sort by source id so the
	// first-seen-wins dedup is stable across runs.
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Source < collected[j].Source
	})

	final := Reduce(collected, stats, log)

	// ---- Persist & Report ----

	if opts.Persist && opts.Store != nil && len(final) > 0 {
		// Fresh context: a cancelled run still persists what it collected.
		pctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		res, err := opts.Store.UpsertContracts(pctx, final)
		if err != nil {
			stats.Duration = time.Since(stats.StartedAt)
			return stats, err
		}
		stats.Persisted = true
		stats.Inserted = res.Inserted
		stats.Updated = res.Updated
	}

	stats.Duration = time.Since(stats.StartedAt)
	log.Info("run complete",
		"total", stats.Total,
		"duplicates", stats.Duplicates,
		"dropped", stats.DroppedInvalid,
		"errors", len(stats.Errors),
		"persisted", stats.Persisted,
		"duration", stats.Duration)
	return stats, nil
}

// Reduce deduplicates the combined result set by (region, reference),
// keeping the first-seen record per key, drops records that fail
// validation, and counts the survivors into stats.
func Reduce(results []types.ScrapeResult, stats *RunStats, log *logging.Logger) []domain.Contract {
	seen := make(map[string]bool)
	var final []domain.Contract

	for _, res := range results {
		for _, c := range res.Contracts {
			// The dedup key must never split on case, whatever an
			// adapter emitted.
			c.RegionCode = strings.ToUpper(strings.TrimSpace(c.RegionCode))

			if !ValidTitle(c.Title) {
				stats.DroppedInvalid++
				log.Debug("dropped invalid record", "source", res.Source, "ref", c.ReferenceNumber)
				continue
			}

			key := c.Key()
			if seen[key] {
				stats.Duplicates++
				continue
			}
			seen[key] = true

			final = append(final, c)
			stats.count(c)
		}
	}
	return final
}

// placeholderTitles are strings sources emit when a listing has no real
// title; records carrying one are invalid.
var placeholderTitles = map[string]bool{
	"n/a":      true,
	"na":       true,
	"none":     true,
	"null":     true,
	"untitled": true,
	"tbd":      true,
	"-":        true,
}

func ValidTitle(title string) bool {
	t := strings.TrimSpace(title)
	if t == "" {
		return false
	}
	return !placeholderTitles[strings.ToLower(t)]
}

func classifyAdapterError(err error) string {
	var hard *fetch.HardError
	if errors.As(err, &hard) {
		return ErrKindStructural
	}
	var exh *fetch.ExhaustedError
	if errors.As(err, &exh) {
		return ErrKindExhausted
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrKindTimeout
	}
	return ErrKindOther
}
