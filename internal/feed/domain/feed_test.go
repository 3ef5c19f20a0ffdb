package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupKeyPrefersLink(t *testing.T) {
	item := FeedItem{Title: "Post", Link: "https://acme.example/1", Source: "Acme"}
	assert.Equal(t, "https://acme.example/1", item.DedupKey())
}

func TestDedupKeyFallsBackToCompositeKey(t *testing.T) {
	at := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	a := FeedItem{Title: "Post", Source: "Acme", PublishedAt: at}
	b := FeedItem{Title: "Post", Source: "Acme", PublishedAt: at}
	c := FeedItem{Title: "Post", Source: "Globex", PublishedAt: at}

	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}
