package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/channelwatch/internal/models"
	"github.com/channelwatch/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists for file-backed databases
	if !strings.HasPrefix(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory") {
		dir := filepath.Dir(dsn)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Collector{},
		&models.Source{},
		&models.Content{},
		&models.AnalysisRequirement{},
		&models.AnalysisResult{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// wrapNotFound maps gorm's sentinel onto the storage one.
func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// Collector operations

// EnsureCollector registers a collector under its short name if it is not
// already registered, and returns the stored row either way.
func (r *Repository) EnsureCollector(ctx context.Context, shortName, longName string) (*models.Collector, error) {
	var collector models.Collector
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("short_name = ?", shortName).First(&collector).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		collector = models.Collector{
			ShortName: shortName,
			LongName:  longName,
			Enabled:   true,
		}
		return tx.Create(&collector).Error
	})
	if err != nil {
		return nil, err
	}
	return &collector, nil
}

func (r *Repository) GetCollectorByShortName(ctx context.Context, shortName string) (*models.Collector, error) {
	var collector models.Collector
	if err := r.db.WithContext(ctx).Where("short_name = ?", shortName).First(&collector).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &collector, nil
}

func (r *Repository) ListCollectors(ctx context.Context) ([]*models.Collector, error) {
	var collectors []*models.Collector
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&collectors).Error; err != nil {
		return nil, err
	}
	return collectors, nil
}

func (r *Repository) SetCollectorEnabled(ctx context.Context, id uint, enabled bool) error {
	return r.setEnabled(ctx, &models.Collector{}, id, enabled)
}

// Source operations

func (r *Repository) CreateSource(ctx context.Context, source *models.Source) error {
	return r.db.WithContext(ctx).Create(source).Error
}

func (r *Repository) GetSourceByID(ctx context.Context, id uint) (*models.Source, error) {
	var source models.Source
	if err := r.db.WithContext(ctx).First(&source, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &source, nil
}

func (r *Repository) GetSourceByUID(ctx context.Context, collectorID uint, uid string) (*models.Source, error) {
	var source models.Source
	err := r.db.WithContext(ctx).
		Where("collector_id = ? AND uid = ?", collectorID, uid).
		First(&source).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &source, nil
}

func (r *Repository) ListSources(ctx context.Context, filter storage.SourceFilter) ([]*models.Source, error) {
	var sources []*models.Source
	query := r.db.WithContext(ctx).Model(&models.Source{})

	if filter.CollectorID != nil {
		query = query.Where("collector_id = ?", *filter.CollectorID)
	}
	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Order("id ASC").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *Repository) SetSourceEnabled(ctx context.Context, id uint, enabled bool) error {
	return r.setEnabled(ctx, &models.Source{}, id, enabled)
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *models.Content) error {
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *Repository) GetContentByID(ctx context.Context, id uint) (*models.Content, error) {
	var content models.Content
	if err := r.db.WithContext(ctx).First(&content, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &content, nil
}

func (r *Repository) GetContentByExternalUID(ctx context.Context, sourceID uint, externalUID string) (*models.Content, error) {
	var content models.Content
	err := r.db.WithContext(ctx).
		Where("source_id = ? AND external_uid = ?", sourceID, externalUID).
		First(&content).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &content, nil
}

func (r *Repository) ListContent(ctx context.Context, filter storage.ContentFilter) ([]*models.Content, error) {
	var items []*models.Content
	query := r.db.WithContext(ctx).Model(&models.Content{})

	if filter.SourceID != nil {
		query = query.Where("source_id = ?", *filter.SourceID)
	}
	if filter.Translated != nil {
		query = query.Where("translated = ?", *filter.Translated)
	}
	if filter.Analysed != nil {
		query = query.Where("analysed = ?", *filter.Analysed)
	}

	if filter.OrderDesc {
		query = query.Order("id DESC")
	} else {
		query = query.Order("id ASC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkTranslated stores the translated text and flips the translated flag in
// a single transactional update.
func (r *Repository) MarkTranslated(ctx context.Context, id uint, translatedText string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"translated_text": translatedText,
			"translated":      true,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkAnalysed flips the analysed flag once every enabled requirement has
// produced a result.
func (r *Repository) MarkAnalysed(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ?", id).
		Update("analysed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Analysis requirement operations

func (r *Repository) CreateRequirement(ctx context.Context, req *models.AnalysisRequirement) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *Repository) GetRequirementByID(ctx context.Context, id uint) (*models.AnalysisRequirement, error) {
	var req models.AnalysisRequirement
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &req, nil
}

func (r *Repository) ListRequirements(ctx context.Context, sourceID uint) ([]*models.AnalysisRequirement, error) {
	var reqs []*models.AnalysisRequirement
	err := r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("id ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *Repository) ListEnabledRequirements(ctx context.Context, sourceID uint) ([]*models.AnalysisRequirement, error) {
	var reqs []*models.AnalysisRequirement
	err := r.db.WithContext(ctx).
		Where("source_id = ? AND enabled = ?", sourceID, true).
		Order("id ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *Repository) SetRequirementEnabled(ctx context.Context, id uint, enabled bool) error {
	return r.setEnabled(ctx, &models.AnalysisRequirement{}, id, enabled)
}

// Analysis result operations

// SaveResult upserts by (req_id, content_id) so redelivered analysis tasks
// refresh the stored output instead of appending duplicate rows.
func (r *Repository) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "req_id"}, {Name: "content_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"analysis_time", "output"}),
		}).
		Create(result).Error
}

func (r *Repository) ListResultsByContent(ctx context.Context, contentID uint) ([]*models.AnalysisResult, error) {
	var results []*models.AnalysisResult
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("req_id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// setEnabled toggles the enabled flag on any entity with one.
func (r *Repository) setEnabled(ctx context.Context, model interface{}, id uint, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ?", id).
		Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
