package samgov

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"bidwatch-engine/internal/domain"
	"bidwatch-engine/internal/fetch"
	"bidwatch-engine/internal/logging"
	"bidwatch-engine/internal/normalize"
	"bidwatch-engine/internal/parse"
	"bidwatch-engine/internal/scrape"
	"bidwatch-engine/internal/scrape/types"
)

const sourceID = "samgov"

type Config struct {
	BaseURL  string // opportunities search endpoint
	APIKey   string
	PageSize int
	MaxPages int
}

// Adapter pulls federal opportunity notices from the SAM.gov search API.
// The payload shape drifts between API versions, so fields are dug out of
// a generic document rather than bound to structs.
type Adapter struct {
	cfg      Config
	client   *fetch.Client
	keywords scrape.Keywords
	log      *logging.Logger
}

func New(cfg Config, client *fetch.Client, keywords scrape.Keywords, log *logging.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sam.gov/opportunities/v2/search"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	return &Adapter{cfg: cfg, client: client, keywords: keywords, log: log}
}

func (a *Adapter) Name() string { return sourceID }

func (a *Adapter) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	out := types.ScrapeResult{Source: sourceID}

	for page := 0; page < a.cfg.MaxPages; page++ {
		body, err := a.client.Do(ctx, fetch.Request{URL: a.pageURL(page)})
		if err != nil {
			if page == 0 {
				return out, err
			}
			// Partial pull: keep what earlier pages gave us.
			a.log.Warn("samgov page fetch failed", "page", page, "err", err)
			break
		}

		doc, ok := parse.JSONDocument(body)
		if !ok {
			a.log.Warn("samgov payload not parseable", "page", page)
			break
		}

		items := parse.Array(doc, "opportunitiesData")
		for _, raw := range items {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if c, ok := a.contractFromItem(m); ok {
				out.Contracts = append(out.Contracts, c)
			}
		}

		if len(items) < a.cfg.PageSize {
			break
		}
	}

	a.log.Info("samgov processed", "contracts", len(out.Contracts))
	return out, nil
}

func (a *Adapter) pageURL(page int) string {
	now := time.Now()
	q := url.Values{}
	q.Set("api_key", a.cfg.APIKey)
	q.Set("limit", strconv.Itoa(a.cfg.PageSize))
	q.Set("offset", strconv.Itoa(page*a.cfg.PageSize))
	// The API requires a posted window; a trailing month keeps the pull
	// bounded while repeated runs stay idempotent via the upsert.
	q.Set("postedFrom", now.AddDate(0, -1, 0).Format("01/02/2006"))
	q.Set("postedTo", now.Format("01/02/2006"))
	return fmt.Sprintf("%s?%s", a.cfg.BaseURL, q.Encode())
}

func (a *Adapter) contractFromItem(m map[string]any) (domain.Contract, bool) {
	title := parse.String(m, "title")
	desc := parse.String(m, "description")
	if !a.keywords.Match(title, desc) {
		return domain.Contract{}, false
	}

	ref := parse.String(m, "solicitationNumber")
	if ref == "" {
		ref = parse.String(m, "noticeId")
	}

	extra := map[string]string{}
	if t := parse.String(m, "type"); t != "" {
		extra["notice_type"] = t
	}
	if n := parse.String(m, "naicsCode"); n != "" {
		extra["naics"] = n
	}
	if o := parse.String(m, "organizationType"); o != "" {
		extra["organization_type"] = o
	}

	return normalize.Assemble(normalize.Fields{
		Region:      parse.String(m, "placeOfPerformance", "state", "code"),
		Title:       title,
		Reference:   ref,
		DueDate:     parse.String(m, "responseDeadLine"),
		Link:        parse.String(m, "uiLink"),
		IssuingBody: parse.String(m, "fullParentPathName"),
		SourceID:    sourceID,
		SourceName:  "SAM.gov",
		Extra:       extra,
	}), true
}
