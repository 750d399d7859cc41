package types

import "time"

// Notice is one procurement opportunity returned by the backend for a source.
// The first six fields are the wire contract with the backend; SourceID and Key
// are attached when the notice is merged into the store.
type Notice struct {
	Title    string `json:"title,omitempty"`
	Buyer    string `json:"buyer,omitempty"`
	Country  string `json:"country,omitempty"`
	Date     string `json:"date,omitempty"` // YYYY-MM-DD
	NoticeID string `json:"notice_id,omitempty"`
	URL      string `json:"url,omitempty"`

	SourceID string `json:"source_id,omitempty"`
	Key      string `json:"key,omitempty"`
}

// HasIdentity reports whether the notice carries a title or a url.
// Notices without either are discarded before merge.
func (n Notice) HasIdentity() bool {
	return n.Title != "" || n.URL != ""
}

// IndexEntry tracks when a stable key was first and last observed
type IndexEntry struct {
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// TaggedNotice is a read-time view of a stored notice enriched with catalog
// data and the recency flag. It is never persisted.
type TaggedNotice struct {
	Notice
	Region    Region    `json:"region"`
	Category  Category  `json:"category"`
	Label     string    `json:"label"`
	IsNew     bool      `json:"is_new"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}
