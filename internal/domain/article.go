package domain

import "time"

// Metadata keys stored alongside every imported content item.
const (
	MetaCustomLink   = "custom_link"
	MetaCustomRating = "custom_rating"
)

// RemoteArticle is one record of the upstream feed after boundary validation.
type RemoteArticle struct {
	Title    string
	Content  string
	Category string
	Rating   string
	SiteLink string
	Image    string
}

type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
)

// ContentItem is a persisted piece of content.
type ContentItem struct {
	ID               int64
	Title            string
	Body             string
	PublishedAt      time.Time
	AuthorID         int64
	Status           ContentStatus
	Categories       []Category
	Meta             map[string]string
	ThumbnailMediaID *int64
	ThumbnailURL     string
	CreatedAt        time.Time
}

// CategoryIDs returns the identifiers of the item's categories.
func (c *ContentItem) CategoryIDs() []int64 {
	ids := make([]int64, len(c.Categories))
	for i, cat := range c.Categories {
		ids[i] = cat.ID
	}
	return ids
}

// MetaValue returns the metadata value for key and whether it is set.
func (c *ContentItem) MetaValue(key string) (string, bool) {
	v, ok := c.Meta[key]
	return v, ok
}

// ContentDraft carries everything needed to create a ContentItem.
type ContentDraft struct {
	Title       string
	Body        string
	PublishedAt time.Time
	AuthorID    int64
	Status      ContentStatus
	CategoryIDs []int64
	Meta        map[string]string
}

type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// MediaAsset is a downloaded copy of a remote image owned by the store.
type MediaAsset struct {
	ID          int64     `db:"id"`
	ItemID      int64     `db:"item_id"`
	Title       string    `db:"title"`
	SourceURL   string    `db:"source_url"`
	StorageKey  string    `db:"storage_key"`
	PublicURL   string    `db:"public_url"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	CreatedAt   time.Time `db:"created_at"`
}
