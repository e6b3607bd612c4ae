package models

// Source is a single monitored origin (a channel, a feed) owned by exactly
// one collector. The UID is the collector's own identifier for the origin and
// is unique per collector. Enabled gates whether content from this source is
// analysed.
type Source struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	CollectorID  uint   `gorm:"uniqueIndex:idx_collector_uid;not null" json:"collector_id"`
	UID          string `gorm:"uniqueIndex:idx_collector_uid;not null" json:"uid"`
	FriendlyName string `json:"friendly_name"`
	UserNote     string `json:"user_note"`
	Enabled      bool   `gorm:"default:true" json:"enabled"`
	Metadata     JSON   `gorm:"type:json" json:"metadata"`
}
