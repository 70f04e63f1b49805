package txsmartbuy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"bidwatch-engine/internal/fetch"
	"bidwatch-engine/internal/logging"
	"bidwatch-engine/internal/normalize"
	"bidwatch-engine/internal/scrape"
	"bidwatch-engine/internal/scrape/types"
)

const sourceID = "txsmartbuy"

type Config struct {
	BaseURL  string
	PageSize int
}

// Adapter pulls Texas state solicitations from the ESBD search endpoint.
// The endpoint is a JSON POST and rejects requests without the AJAX
// header, so the quirks live here rather than in the fetch engine.
type Adapter struct {
	cfg      Config
	client   *fetch.Client
	keywords scrape.Keywords
	log      *logging.Logger
}

func New(cfg Config, client *fetch.Client, keywords scrape.Keywords, log *logging.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.txsmartbuy.com"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Adapter{cfg: cfg, client: client, keywords: keywords, log: log}
}

func (a *Adapter) Name() string { return sourceID }

type searchRequest struct {
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Status   string `json:"status"`
}

// Only the fields we map; the payload carries much more.
type searchResponse struct {
	Results []solicitation `json:"results"`
	Total   int            `json:"total"`
}

type solicitation struct {
	SolicitationID string `json:"solicitationId"`
	Title          string `json:"title"`
	Agency         string `json:"agency"`
	DueDate        string `json:"dueDate"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	Category       string `json:"category"`
}

func (a *Adapter) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	out := types.ScrapeResult{Source: sourceID}

	reqBody, _ := json.Marshal(searchRequest{Page: 1, PageSize: a.cfg.PageSize, Status: "open"})

	body, err := a.client.Do(ctx, fetch.Request{
		URL:    strings.TrimRight(a.cfg.BaseURL, "/") + "/esbd/api/solicitations/search",
		Method: http.MethodPost,
		Body:   reqBody,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"Accept":           "application/json",
			"X-Requested-With": "XMLHttpRequest",
		},
	})
	if err != nil {
		return out, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		a.log.Warn("txsmartbuy payload not parseable", "err", err)
		return out, nil
	}

	for _, s := range resp.Results {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		if !a.keywords.Match(s.Title, s.Description) {
			continue
		}

		link := s.URL
		if strings.HasPrefix(link, "/") {
			link = strings.TrimRight(a.cfg.BaseURL, "/") + link
		}
		if link == "" && s.SolicitationID != "" {
			link = fmt.Sprintf("%s/esbd/solicitation/%s", strings.TrimRight(a.cfg.BaseURL, "/"), s.SolicitationID)
		}

		extra := map[string]string{}
		if s.Category != "" {
			extra["category"] = s.Category
		}
		if s.Description != "" {
			extra["description"] = s.Description
		}

		out.Contracts = append(out.Contracts, normalize.Assemble(normalize.Fields{
			Region:      "TX", // single-state source
			Title:       s.Title,
			Reference:   s.SolicitationID,
			DueDate:     s.DueDate,
			Link:        link,
			IssuingBody: s.Agency,
			SourceID:    sourceID,
			SourceName:  "TXSmartBuy",
			Extra:       extra,
		}))
	}

	a.log.Info("txsmartbuy processed", "contracts", len(out.Contracts))
	return out, nil
}
