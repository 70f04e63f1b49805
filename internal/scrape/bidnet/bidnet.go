package bidnet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bidwatch-engine/internal/domain"
	"bidwatch-engine/internal/fetch"
	"bidwatch-engine/internal/logging"
	"bidwatch-engine/internal/normalize"
	"bidwatch-engine/internal/parse"
	"bidwatch-engine/internal/scrape"
	"bidwatch-engine/internal/scrape/types"
)

const sourceID = "bidnet"

type Config struct {
	BaseURL string
	Regions []string // portal region slugs, e.g. "virginia", "maryland"
}

// Adapter scrapes a regional bid portal that hosts one board per state.
// One HTML fetch per configured region slug; listings are table rows.
type Adapter struct {
	cfg      Config
	client   *fetch.Client
	keywords scrape.Keywords
	log      *logging.Logger
}

func New(cfg Config, client *fetch.Client, keywords scrape.Keywords, log *logging.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.bidnetdirect.com"
	}
	return &Adapter{cfg: cfg, client: client, keywords: keywords, log: log}
}

func (a *Adapter) Name() string { return sourceID }

func (a *Adapter) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	const workers = 4

	out := types.ScrapeResult{Source: sourceID}

	regionCh := make(chan string)
	batchCh := make(chan []domain.Contract, len(a.cfg.Regions))
	errCh := make(chan error, len(a.cfg.Regions))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for slug := range regionCh {
				rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				cs, err := a.scrapeRegion(rctx, slug)
				cancel()
				if err != nil {
					a.log.Warn("bidnet region fetch failed", "region", slug, "err", err)
					errCh <- err
					continue
				}
				if len(cs) == 0 {
					a.log.Warn("bidnet region zero results", "region", slug)
					continue
				}
				batchCh <- cs
			}
		}()
	}

	go func() {
		defer close(regionCh)
		for _, slug := range a.cfg.Regions {
			select {
			case <-ctx.Done():
				return
			case regionCh <- slug:
			}
		}
	}()

	wg.Wait()
	close(batchCh)
	close(errCh)

	for batch := range batchCh {
		out.Contracts = append(out.Contracts, batch...)
	}

	// Every region failing means the portal itself is down; surface the
	// first error. Partial failures already logged above.
	if len(out.Contracts) == 0 {
		if err, ok := <-errCh; ok {
			return out, err
		}
	}

	a.log.Info("bidnet processed", "regions", len(a.cfg.Regions), "contracts", len(out.Contracts))
	return out, nil
}

func (a *Adapter) scrapeRegion(ctx context.Context, slug string) ([]domain.Contract, error) {
	pageURL := fmt.Sprintf("%s/%s/solicitations/open-bids", strings.TrimRight(a.cfg.BaseURL, "/"), slug)

	body, err := a.client.Do(ctx, fetch.Request{URL: pageURL})
	if err != nil {
		return nil, err
	}

	doc, ok := parse.HTML(body)
	if !ok {
		return nil, fmt.Errorf("bidnet %s: unparseable payload", slug)
	}

	var out []domain.Contract
	rows(doc).Each(func(_ int, row *goquery.Selection) {
		titleSel := row.Find("td.solicitation-title a, h3.card-title a, a[href*='solicitation']").First()
		title := normalize.CleanText(titleSel.Text())
		desc := cell(row, "td.solicitation-description", "div.card-description")
		if !a.keywords.Match(title, desc) {
			return
		}

		link, _ := titleSel.Attr("href")
		link = strings.TrimSpace(link)
		if strings.HasPrefix(link, "/") {
			link = strings.TrimRight(a.cfg.BaseURL, "/") + link
		}

		extra := map[string]string{}
		if desc != "" {
			extra["description"] = desc
		}

		// Slugs hyphenate multi-word states; the region table wants spaces.
		out = append(out, normalize.Assemble(normalize.Fields{
			Region:      strings.ReplaceAll(slug, "-", " "),
			Title:       title,
			Reference:   cell(row, "td.solicitation-ref", "span.card-ref"),
			DueDate:     cell(row, "td.solicitation-due", "span.card-due"),
			Link:        link,
			IssuingBody: cell(row, "td.solicitation-agency", "span.card-agency"),
			SourceID:    sourceID,
			SourceName:  "BidNet Direct",
			Extra:       extra,
		}))
	})

	return out, nil
}

func cell(row *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := normalize.CleanText(row.Find(s).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// rows picks the repeating listing unit; boards render either a classic
// table or a card list depending on portal vintage.
func rows(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("table.solicitations-table tbody tr"); sel.Length() > 0 {
		return sel
	}
	return doc.Find("div.solicitation-card")
}
