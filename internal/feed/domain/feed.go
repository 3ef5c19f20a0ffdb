package domain

import "time"

// FeedItem is one entry from an external content feed, normalized across
// RSS and Atom sources.
type FeedItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link,omitempty"`
	Source      string    `json:"source"`
	Description string    `json:"description,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// DedupKey identifies an item across feeds: the canonical link when present,
// otherwise a composite of title, source and publish time.
func (i FeedItem) DedupKey() string {
	if i.Link != "" {
		return i.Link
	}
	return i.Title + "|" + i.Source + "|" + i.PublishedAt.UTC().Format(time.RFC3339)
}
