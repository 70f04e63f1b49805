package govfeeds

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"bidwatch-engine/internal/config"
	"bidwatch-engine/internal/fetch"
	"bidwatch-engine/internal/logging"
	"bidwatch-engine/internal/normalize"
	"bidwatch-engine/internal/parse"
	"bidwatch-engine/internal/scrape"
	"bidwatch-engine/internal/scrape/types"
)

const sourceID = "govfeeds"

type Config struct {
	Feeds []config.Feed
}

// Adapter walks a roster of RSS/Atom procurement feeds, one per agency or
// state portal. Malformed feeds degrade to whatever entries parsed.
type Adapter struct {
	cfg      Config
	client   *fetch.Client
	keywords scrape.Keywords
	log      *logging.Logger
}

func New(cfg Config, client *fetch.Client, keywords scrape.Keywords, log *logging.Logger) *Adapter {
	return &Adapter{cfg: cfg, client: client, keywords: keywords, log: log}
}

func (a *Adapter) Name() string { return sourceID }

func (a *Adapter) Scrape(ctx context.Context) (types.ScrapeResult, error) {
	out := types.ScrapeResult{Source: sourceID}

	var firstErr error
	failed := 0
	for _, feed := range a.cfg.Feeds {
		body, err := a.client.Do(ctx, fetch.Request{URL: feed.URL})
		if err != nil {
			a.log.Warn("feed fetch failed", "feed", feed.Name, "url", feed.URL, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			failed++
			continue
		}

		entries, skipped := parse.Feed(body)
		if skipped == -1 {
			a.log.Warn("feed not parseable", "feed", feed.Name, "url", feed.URL)
			continue
		}
		if skipped > 0 {
			a.log.Warn("feed had malformed entries", "feed", feed.Name, "skipped", skipped)
		}
		if len(entries) == 0 {
			a.log.Warn("feed zero results", "feed", feed.Name)
			continue
		}

		for _, e := range entries {
			if !a.keywords.Match(e.Title, e.Summary) {
				continue
			}

			extra := map[string]string{}
			if e.Summary != "" {
				extra["summary"] = truncate(e.Summary, 500)
			}
			if !e.Published.IsZero() {
				extra["published"] = e.Published.UTC().Format("2006-01-02")
			}

			out.Contracts = append(out.Contracts, normalize.Assemble(normalize.Fields{
				Region:      feed.Region,
				Title:       e.Title,
				Reference:   refFromLink(e.Link),
				Link:        e.Link,
				IssuingBody: feed.Name,
				SourceID:    sourceID,
				SourceName:  feed.Name,
				Extra:       extra,
			}))
		}
	}

	// Only a fully dark roster counts as adapter failure.
	if len(out.Contracts) == 0 && failed == len(a.cfg.Feeds) && firstErr != nil {
		return out, firstErr
	}

	a.log.Info("govfeeds processed", "feeds", len(a.cfg.Feeds), "contracts", len(out.Contracts))
	return out, nil
}

// refFromLink derives a stable reference from the entry URL. Feeds rarely
// carry a solicitation number, and letting every entry fall through to the
// "N/A" sentinel would collapse a whole region's feed into one dedup key.
func refFromLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	sum := sha1.Sum([]byte(link))
	return "feed-" + hex.EncodeToString(sum[:])[:12]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
