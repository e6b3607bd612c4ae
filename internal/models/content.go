package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON is a custom type for storing arbitrary JSON data
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Content is one ingested item of text plus its enrichment lifecycle flags.
// OriginalText is immutable after creation. TranslatedText and Translated
// transition exactly once from unset to set; Analysed flips to true once
// every enabled requirement for the owning source has produced a result.
type Content struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SourceID       uint      `gorm:"index;not null" json:"source_id"`
	ExternalUID    string    `gorm:"index" json:"external_uid"` // origin key for pull-based dedup, empty for push
	CollectionTime time.Time `gorm:"autoCreateTime" json:"collection_time"`
	OriginTime     time.Time `json:"origin_time"`
	OriginalText   string    `gorm:"not null" json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	Translated     bool      `gorm:"default:false" json:"translated"`
	Analysed       bool      `gorm:"default:false" json:"analysed"`
	Metadata       JSON      `gorm:"type:json" json:"metadata"`
}
