package model

import "time"

// ContentItem is a sellable audio item (album, audiobook, episode bundle).
// Catalog CRUD lives outside this core; we only read price, currency, free
// flag and owner.
type ContentItem struct {
	ID         string
	OwnerID    string
	Title      string
	PriceCents int64
	Currency   string
	IsFree     bool
	CreatedAt  time.Time
}

// Track is a sub-resource of a ContentItem. Tracks flagged as samples are
// always streamable, regardless of who asks.
type Track struct {
	ID            string
	ContentItemID string
	Title         string
	IsSample      bool
}
