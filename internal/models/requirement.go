package models

// AnalysisRequirement is one configured analysis to run against every piece
// of content from a source: a prompt plus the identifier of the analysis
// provider that should execute it. Requirements are configured out of band
// and are read-only from the pipeline's perspective; disabling one excludes
// it from processing without deleting its result history.
type AnalysisRequirement struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	SourceID uint   `gorm:"index;not null" json:"source_id"`
	LLMID    string `gorm:"column:llm_id" json:"llm_id"` // analysis provider identifier, empty uses the configured default
	Name     string `gorm:"not null" json:"name"`
	Prompt   string `gorm:"not null" json:"prompt"`
	Enabled  bool   `gorm:"default:true" json:"enabled"`
}
