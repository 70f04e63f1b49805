package domain

import "time"

// Sentinels substituted by the normalizer when a source cannot supply a field.
const (
	DefaultRegion    = "US"
	DefaultReference = "N/A"
)

// Contract is the canonical, source-agnostic procurement opportunity record.
// Everything downstream of an adapter exchanges this shape.
type Contract struct {
	RegionCode      string            // 2-letter uppercase code
	Title           string            // never empty once validated
	ReferenceNumber string            // source-native id, half of the dedup key
	DueDate         string            // YYYY-MM-DD, or original text if unparseable
	Link            string            // absolute URL to the detail page, may be empty
	IssuingBody     string            // procuring organization display text
	SourceID        string            // adapter that produced the record
	FetchedAt       time.Time         // time of extraction, not of posting
	Extra           map[string]string // optional source-specific fields
}

// Key is the cross-source dedup/upsert key.
func (c Contract) Key() string {
	return c.RegionCode + "|" + c.ReferenceNumber
}
