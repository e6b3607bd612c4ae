package models

// Collector represents one registered ingestion component, identified by its
// short name. Collectors register themselves once at first startup and are
// never deleted; operators toggle Enabled to pause a whole collector.
type Collector struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ShortName string `gorm:"uniqueIndex;not null" json:"short_name"`
	LongName  string `gorm:"not null" json:"long_name"`
	Enabled   bool   `gorm:"default:true" json:"enabled"`
}
