package scrape

import (
	"time"

	"bidwatch-engine/internal/domain"
)

// Error kinds recorded per adapter.
const (
	ErrKindStructural = "structural"   // 404, DNS, bad endpoint
	ErrKindExhausted  = "exhausted"    // retries spent on a transient failure
	ErrKindTimeout    = "timeout"      // per-adapter deadline hit
	ErrKindZero       = "zero_results" // fetch fine, nothing extracted
	ErrKindOther      = "other"
)

type SourceError struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RunStats is the run-scoped summary. It exists only for the duration of a
// run and is reported, never persisted as domain data.
type RunStats struct {
	StartedAt      time.Time      `json:"started_at"`
	Duration       time.Duration  `json:"duration"`
	Total          int            `json:"total"`
	BySource       map[string]int `json:"by_source"`
	ByRegion       map[string]int `json:"by_region"`
	Duplicates     int            `json:"duplicates"`
	DroppedInvalid int            `json:"dropped_invalid"`
	Persisted      bool           `json:"persisted"`
	Inserted       int            `json:"inserted"`
	Updated        int            `json:"updated"`
	Errors         []SourceError  `json:"errors"`
}

func newRunStats() *RunStats {
	return &RunStats{
		StartedAt: time.Now().UTC(),
		BySource:  make(map[string]int),
		ByRegion:  make(map[string]int),
	}
}

func (s *RunStats) count(c domain.Contract) {
	s.Total++
	s.BySource[c.SourceID]++
	s.ByRegion[c.RegionCode]++
}

func (s *RunStats) addError(source, kind, msg string) {
	s.Errors = append(s.Errors, SourceError{Source: source, Kind: kind, Message: msg})
}
