package normalize

import (
	"strings"
	"time"

	"bidwatch-engine/internal/domain"
)

// Fields is the raw text an adapter extracted for one listing. Everything
// is free text straight off the wire; Assemble owns the cleanup.
type Fields struct {
	Region      string
	Title       string
	Reference   string
	DueDate     string
	Link        string
	IssuingBody string
	SourceID    string
	SourceName  string // adapter display name, issuing-body fallback
	Extra       map[string]string
}

// Assemble builds the canonical record: trims every string field, runs the
// date and region normalizers, substitutes sentinels for missing fields,
// and stamps the extraction time.
func Assemble(f Fields) domain.Contract {
	region := Region(f.Region)
	if region == "" {
		region = domain.DefaultRegion
	}

	ref := CleanText(f.Reference)
	if ref == "" {
		ref = domain.DefaultReference
	}

	issuer := CleanText(f.IssuingBody)
	if issuer == "" {
		issuer = CleanText(f.SourceName)
	}

	var extra map[string]string
	if len(f.Extra) > 0 {
		extra = make(map[string]string, len(f.Extra))
		for k, v := range f.Extra {
			extra[k] = CleanText(v)
		}
	}

	return domain.Contract{
		RegionCode:      region,
		Title:           CleanText(f.Title),
		ReferenceNumber: ref,
		DueDate:         Date(f.DueDate),
		Link:            strings.TrimSpace(f.Link),
		IssuingBody:     issuer,
		SourceID:        CleanText(f.SourceID),
		FetchedAt:       time.Now().UTC(),
		Extra:           extra,
	}
}
