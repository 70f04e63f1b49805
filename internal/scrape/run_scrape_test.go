package scrape

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"bidwatch-engine/internal/domain"
	"bidwatch-engine/internal/fetch"
	"bidwatch-engine/internal/logging"
	"bidwatch-engine/internal/scrape/types"
	"bidwatch-engine/internal/store"
)

type fakeAdapter struct {
	name      string
	contracts []domain.Contract
	err       error
	block     bool // sit on ctx until the per-adapter timeout fires
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	if f.block {
		<-ctx.Done()
		return types.ScrapeResult{Source: f.name}, ctx.Err()
	}
	if f.err != nil {
		return types.ScrapeResult{Source: f.name}, f.err
	}
	return types.ScrapeResult{Source: f.name, Contracts: f.contracts}, nil
}

type fakeStore struct {
	upserted []domain.Contract
	fail     error
}

func (f *fakeStore) UpsertContracts(ctx context.Context, cs []domain.Contract) (store.UpsertResult, error) {
	if f.fail != nil {
		return store.UpsertResult{}, f.fail
	}
	f.upserted = append(f.upserted, cs...)
	return store.UpsertResult{Inserted: len(cs)}, nil
}

func (f *fakeStore) Close() error { return nil }

func contract(region, ref, title, source string) domain.Contract {
	return domain.Contract{
		RegionCode:      region,
		Title:           title,
		ReferenceNumber: ref,
		SourceID:        source,
		FetchedAt:       time.Now().UTC(),
	}
}

func TestRunEndToEnd(t *testing.T) {
	// A and B collide on (VA, 123); C exhausts retries on a 403.
	a := &fakeAdapter{name: "alpha", contracts: []domain.Contract{
		contract("VA", "123", "Janitorial Services RFP", "alpha"),
	}}
	b := &fakeAdapter{name: "beta", contracts: []domain.Contract{
		contract("va", "123", "Janitorial Services RFP (dup)", "beta"),
	}}
	c := &fakeAdapter{name: "gamma", err: &fetch.ExhaustedError{
		URL: "https://gamma.example.gov", Attempts: 3, Err: errors.New("status 403"),
	}}

	st := &fakeStore{}
	stats, err := Run(context.Background(), Options{
		Adapters: []types.Adapter{c, b, a}, // registration order must not matter
		Persist:  true,
		Store:    st,
		Logger:   logging.Nop(),
	})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}

	if stats.Total != 1 {
		t.Fatalf("total = %d; want 1", stats.Total)
	}
	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d; want 1", stats.Duplicates)
	}
	if len(st.upserted) != 1 {
		t.Fatalf("upserted = %d; want 1", len(st.upserted))
	}
	got := st.upserted[0]
	if got.RegionCode != "VA" || got.ReferenceNumber != "123" {
		t.Errorf("kept key = (%s,%s); want (VA,123)", got.RegionCode, got.ReferenceNumber)
	}
	// Sorted source order makes alpha the first-seen winner.
	if got.SourceID != "alpha" {
		t.Errorf("winner = %s; want alpha", got.SourceID)
	}

	if len(stats.Errors) != 1 {
		t.Fatalf("errors = %v; want one entry", stats.Errors)
	}
	if stats.Errors[0].Source != "gamma" || stats.Errors[0].Kind != ErrKindExhausted {
		t.Errorf("error entry = %+v", stats.Errors[0])
	}
}

func TestRunStructuralFailureRecorded(t *testing.T) {
	a := &fakeAdapter{name: "alpha", err: &fetch.HardError{
		URL: "https://alpha.example.gov", Reason: "not_found", Err: errors.New("status 404"),
	}}

	stats, err := Run(context.Background(), Options{
		Adapters: []types.Adapter{a},
		Logger:   logging.Nop(),
	})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if len(stats.Errors) != 1 || stats.Errors[0].Kind != ErrKindStructural {
		t.Errorf("errors = %+v; want one structural entry", stats.Errors)
	}
	if stats.Total != 0 {
		t.Errorf("total = %d; want 0", stats.Total)
	}
}

func TestRunTimedOutAdapterDoesNotStallRun(t *testing.T) {
	slow := &fakeAdapter{name: "slow", block: true}
	ok := &fakeAdapter{name: "ok", contracts: []domain.Contract{
		contract("MD", "A-1", "Grounds Maintenance", "ok"),
	}}

	start := time.Now()
	stats, err := Run(context.Background(), Options{
		Adapters:       []types.Adapter{slow, ok},
		AdapterTimeout: 50 * time.Millisecond,
		Logger:         logging.Nop(),
	})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("run did not respect the per-adapter timeout")
	}
	if stats.Total != 1 {
		t.Errorf("total = %d; want 1 from the healthy adapter", stats.Total)
	}
	found := false
	for _, e := range stats.Errors {
		if e.Source == "slow" && e.Kind == ErrKindTimeout {
			found = true
		}
	}
	if !found {
		t.Errorf("no timeout entry for slow adapter: %+v", stats.Errors)
	}
}

func TestRunStoreFailureIsTerminal(t *testing.T) {
	a := &fakeAdapter{name: "alpha", contracts: []domain.Contract{
		contract("VA", "1", "Custodial Services", "alpha"),
	}}
	st := &fakeStore{fail: errors.New("connection refused")}

	_, err := Run(context.Background(), Options{
		Adapters: []types.Adapter{a},
		Persist:  true,
		Store:    st,
		Logger:   logging.Nop(),
	})
	if err == nil {
		t.Fatal("store-wide failure must surface as a terminal run error")
	}
}

func TestReduceDedupAndValidation(t *testing.T) {
	results := []types.ScrapeResult{
		{Source: "alpha", Contracts: []domain.Contract{
			contract("VA", "123", "Janitorial Services RFP", "alpha"),
			contract("VA", "123", "same key again", "alpha"),
			contract("MD", "9", "", "alpha"),     // empty title dropped
			contract("MD", "10", "N/A", "alpha"), // placeholder dropped
			contract("tx", "5", "Pest Control IFB", "alpha"),
		}},
	}

	stats := newRunStats()
	final := Reduce(results, stats, logging.Nop())

	if len(final) != 2 {
		t.Fatalf("final = %d records; want 2", len(final))
	}
	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d; want 1", stats.Duplicates)
	}
	if stats.DroppedInvalid != 2 {
		t.Errorf("dropped = %d; want 2", stats.DroppedInvalid)
	}
	for _, c := range final {
		if c.RegionCode != "VA" && c.RegionCode != "TX" {
			t.Errorf("region not uppercased: %q", c.RegionCode)
		}
	}
}

func TestReduceIdempotent(t *testing.T) {
	in := []types.ScrapeResult{{Source: "alpha", Contracts: []domain.Contract{
		contract("VA", "1", "Window Cleaning", "alpha"),
		contract("MD", "2", "Snow Removal", "alpha"),
	}}}

	first := Reduce(in, newRunStats(), logging.Nop())
	second := Reduce([]types.ScrapeResult{{Source: "alpha", Contracts: first}}, newRunStats(), logging.Nop())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("reduce not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
