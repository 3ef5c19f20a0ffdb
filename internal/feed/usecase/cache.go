package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	feeddomain "traction-backend/internal/feed/domain"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

// CacheTTL is how long a fetched feed is served without any network call.
const CacheTTL = 15 * time.Minute

type cacheEntry struct {
	items        []feeddomain.FeedItem
	etag         string
	lastModified string
	fetchedAt    time.Time
}

// FeedCache polls external feeds with a TTL plus conditional revalidation:
// inside the TTL a cached entry is returned as-is; after it, the stored
// ETag/Last-Modified validators are replayed and a 304 keeps the old items.
type FeedCache struct {
	client *http.Client
	parser *gofeed.Parser
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// NewFeedCache creates a new instance of FeedCache
func NewFeedCache(client *http.Client, logger *logrus.Logger) *FeedCache {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &FeedCache{
		client:  client,
		parser:  gofeed.NewParser(),
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the items for one feed, from cache when fresh.
func (c *FeedCache) Get(ctx context.Context, feedURL string) ([]feeddomain.FeedItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[feedURL]
	if entry != nil && c.now().Sub(entry.fetchedAt) < CacheTTL {
		return cloneItems(entry.items), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build feed request: %w", err)
	}
	if entry != nil {
		if entry.etag != "" {
			req.Header.Set("If-None-Match", entry.etag)
		}
		if entry.lastModified != "" {
			req.Header.Set("If-Modified-Since", entry.lastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if entry != nil {
			// Serve stale rather than nothing when the feed is unreachable.
			c.logger.WithError(err).WithField("feed", feedURL).Warn("feed unreachable, serving cached items")
			return cloneItems(entry.items), nil
		}
		return nil, fmt.Errorf("unable to fetch feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && entry != nil:
		entry.fetchedAt = c.now()
		return cloneItems(entry.items), nil

	case resp.StatusCode == http.StatusOK:
		feed, err := c.parser.Parse(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("unable to parse feed %s: %w", feedURL, err)
		}
		items := convertFeed(feed)
		c.entries[feedURL] = &cacheEntry{
			items:        items,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			fetchedAt:    c.now(),
		}
		return cloneItems(items), nil

	default:
		return nil, fmt.Errorf("unable to fetch feed %s: status %d", feedURL, resp.StatusCode)
	}
}

// Latest aggregates every configured feed: per-feed failures are logged and
// skipped, the union is deduplicated, sorted newest first and truncated.
func (c *FeedCache) Latest(ctx context.Context, feedURLs []string, limit int) ([]feeddomain.FeedItem, error) {
	if limit <= 0 {
		limit = 20
	}

	seen := make(map[string]struct{})
	var items []feeddomain.FeedItem
	for _, feedURL := range feedURLs {
		feedItems, err := c.Get(ctx, feedURL)
		if err != nil {
			c.logger.WithError(err).WithField("feed", feedURL).Warn("skipping feed")
			continue
		}
		for _, item := range feedItems {
			key := item.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func convertFeed(feed *gofeed.Feed) []feeddomain.FeedItem {
	items := make([]feeddomain.FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		published := time.Time{}
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}
		items = append(items, feeddomain.FeedItem{
			Title:       item.Title,
			Link:        item.Link,
			Source:      feed.Title,
			Description: item.Description,
			PublishedAt: published,
		})
	}
	return items
}

func cloneItems(items []feeddomain.FeedItem) []feeddomain.FeedItem {
	out := make([]feeddomain.FeedItem, len(items))
	copy(out, items)
	return out
}
