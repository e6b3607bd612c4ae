package models

import "time"

// AnalysisResult is the persisted output of running one requirement against
// one content item. The (req_id, content_id) pair is unique: redelivered
// analysis tasks upsert instead of appending duplicate rows.
type AnalysisResult struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ReqID        uint      `gorm:"column:req_id;uniqueIndex:idx_req_content;not null" json:"req_id"`
	ContentID    uint      `gorm:"uniqueIndex:idx_req_content;not null" json:"content_id"`
	AnalysisTime time.Time `gorm:"autoCreateTime" json:"analysis_time"`
	Output       JSON      `gorm:"type:json" json:"output"`
}
