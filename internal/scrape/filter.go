package scrape

import "strings"

// Keywords is the flat relevance list shared by every adapter. It is
// configuration data, not logic: new sources extend it in config.yml.
type Keywords []string

// Match reports whether any keyword appears, case-insensitively, in any of
// the given text chunks. An empty keyword list keeps everything.
func (k Keywords) Match(chunks ...string) bool {
	if len(k) == 0 {
		return true
	}
	blob := strings.ToLower(strings.Join(chunks, " "))
	for _, kw := range k {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(blob, kw) {
			return true
		}
	}
	return false
}
