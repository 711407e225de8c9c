package domain

import (
	"fmt"
	"time"
)

// MaxRawTextSize is the maximum raw article text size in bytes.
const MaxRawTextSize = 262144 // 256KB

// ContentItem is the immutable ingestion input (value object).
type ContentItem struct {
	id          string
	rawText     string
	title       string
	sourceID    string
	publishedAt time.Time
}

// NewContentItem validates and creates a ContentItem.
func NewContentItem(id, rawText, title, sourceID string, publishedAt time.Time) (ContentItem, error) {
	if id == "" {
		return ContentItem{}, fmt.Errorf("item ID is required")
	}
	if len(id) > 256 {
		return ContentItem{}, fmt.Errorf("item ID too long (max 256)")
	}
	if rawText == "" {
		return ContentItem{}, fmt.Errorf("raw text is required")
	}
	if len(rawText) > MaxRawTextSize {
		return ContentItem{}, fmt.Errorf("raw text too large (max %d bytes)", MaxRawTextSize)
	}

	return ContentItem{
		id:          id,
		rawText:     rawText,
		title:       title,
		sourceID:    sourceID,
		publishedAt: publishedAt,
	}, nil
}

// ReconstructContentItem creates a ContentItem without validation (storage hydration).
func ReconstructContentItem(id, rawText, title, sourceID string, publishedAt time.Time) ContentItem {
	return ContentItem{id: id, rawText: rawText, title: title, sourceID: sourceID, publishedAt: publishedAt}
}

// ID returns the item identifier.
func (c *ContentItem) ID() string { return c.id }

// RawText returns the raw article text.
func (c *ContentItem) RawText() string { return c.rawText }

// Title returns the article title.
func (c *ContentItem) Title() string { return c.title }

// SourceID returns the originating source identifier.
func (c *ContentItem) SourceID() string { return c.sourceID }

// PublishedAt returns the publication timestamp.
func (c *ContentItem) PublishedAt() time.Time { return c.publishedAt }
