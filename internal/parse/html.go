package parse

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// HTML turns an HTML/XML payload into a traversable node tree. It never
// fails hard: malformed markup yields whatever tree the tokenizer could
// build, and ok=false only when no document could be built at all.
func HTML(b []byte) (*goquery.Document, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}
