package parse

import (
	"bytes"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedEntry is one well-formed RSS/Atom item.
type FeedEntry struct {
	Title     string
	Link      string
	Published time.Time
	Summary   string
}

// Feed turns an RSS/Atom payload into an ordered entry list. Items missing
// both a title and a link are counted as malformed and skipped; the caller
// decides whether the skipped count is worth a warning. A payload gofeed
// cannot recognize at all yields an empty list and skipped=-1.
func Feed(b []byte) (entries []FeedEntry, skipped int) {
	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(b))
	if err != nil || feed == nil {
		return nil, -1
	}

	for _, it := range feed.Items {
		if it == nil || (it.Title == "" && it.Link == "") {
			skipped++
			continue
		}
		e := FeedEntry{
			Title:   it.Title,
			Link:    it.Link,
			Summary: it.Description,
		}
		if e.Summary == "" {
			e.Summary = it.Content
		}
		if it.PublishedParsed != nil {
			e.Published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			e.Published = *it.UpdatedParsed
		}
		entries = append(entries, e)
	}
	return entries, skipped
}
