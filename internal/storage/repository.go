package storage

import (
	"context"
	"errors"

	"github.com/channelwatch/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for data persistence. Every call is its
// own transactional scope: it either commits or leaves the store untouched.
type Repository interface {
	// Collector operations
	EnsureCollector(ctx context.Context, shortName, longName string) (*models.Collector, error)
	GetCollectorByShortName(ctx context.Context, shortName string) (*models.Collector, error)
	ListCollectors(ctx context.Context) ([]*models.Collector, error)
	SetCollectorEnabled(ctx context.Context, id uint, enabled bool) error

	// Source operations
	CreateSource(ctx context.Context, source *models.Source) error
	GetSourceByID(ctx context.Context, id uint) (*models.Source, error)
	GetSourceByUID(ctx context.Context, collectorID uint, uid string) (*models.Source, error)
	ListSources(ctx context.Context, filter SourceFilter) ([]*models.Source, error)
	SetSourceEnabled(ctx context.Context, id uint, enabled bool) error

	// Content operations
	CreateContent(ctx context.Context, content *models.Content) error
	GetContentByID(ctx context.Context, id uint) (*models.Content, error)
	GetContentByExternalUID(ctx context.Context, sourceID uint, externalUID string) (*models.Content, error)
	ListContent(ctx context.Context, filter ContentFilter) ([]*models.Content, error)
	MarkTranslated(ctx context.Context, id uint, translatedText string) error
	MarkAnalysed(ctx context.Context, id uint) error

	// Analysis requirement operations
	CreateRequirement(ctx context.Context, req *models.AnalysisRequirement) error
	GetRequirementByID(ctx context.Context, id uint) (*models.AnalysisRequirement, error)
	ListRequirements(ctx context.Context, sourceID uint) ([]*models.AnalysisRequirement, error)
	ListEnabledRequirements(ctx context.Context, sourceID uint) ([]*models.AnalysisRequirement, error)
	SetRequirementEnabled(ctx context.Context, id uint, enabled bool) error

	// Analysis result operations
	SaveResult(ctx context.Context, result *models.AnalysisResult) error
	ListResultsByContent(ctx context.Context, contentID uint) ([]*models.AnalysisResult, error)

	// Maintenance
	Close() error
	Migrate() error
}

// SourceFilter defines filtering options for sources
type SourceFilter struct {
	CollectorID *uint
	Enabled     *bool
	Limit       int
	Offset      int
}

// ContentFilter defines filtering options for content
type ContentFilter struct {
	SourceID   *uint
	Translated *bool
	Analysed   *bool
	Limit      int
	Offset     int
	OrderDesc  bool
}

// DefaultContentFilter returns a filter with sensible defaults
func DefaultContentFilter() ContentFilter {
	return ContentFilter{
		Limit:     50,
		OrderDesc: true,
	}
}
