// Package ingest is the boundary collectors talk to: it owns source and
// content registration and hands every stored item to the translation stage
// through the task bus. Collectors never block on pipeline completion; the
// contract is fire-and-forget with eventual consistency.
package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/channelwatch/internal/models"
	"github.com/channelwatch/internal/storage"
	"github.com/channelwatch/pkg/logger"
)

// ErrEmptyText is returned when a collector submits content with no text.
// Empty items are never stored and never enqueued.
var ErrEmptyText = errors.New("content text is empty")

// TranslationDispatcher is the slice of the task bus the ingest boundary
// needs: submitting a translate task for newly stored content.
type TranslationDispatcher interface {
	EnqueueTranslation(ctx context.Context, contentID uint) error
}

// Service implements the collector-facing contract
type Service struct {
	repo       storage.Repository
	dispatcher TranslationDispatcher
	log        *logger.Logger
}

// NewService creates the ingest service
func NewService(repo storage.Repository, dispatcher TranslationDispatcher, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		log:        log.WithComponent("ingest"),
	}
}

// EnsureCollector registers a collector by short name if it is not already
// registered, returning the stored row either way. Safe to call at every
// startup.
func (s *Service) EnsureCollector(ctx context.Context, shortName, longName string) (*models.Collector, error) {
	collector, err := s.repo.EnsureCollector(ctx, shortName, longName)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("collector", shortName).
		Uint("collector_id", collector.ID).
		Msg("Collector registered")
	return collector, nil
}

// AddSource registers a new source under the collector if the (collector,
// uid) pair is unknown; otherwise it returns the existing row and creates
// nothing.
func (s *Service) AddSource(ctx context.Context, collectorID uint, uid, friendlyName string) (*models.Source, error) {
	existing, err := s.repo.GetSourceByUID(ctx, collectorID, uid)
	if err == nil {
		s.log.Debug().
			Str("uid", uid).
			Uint("source_id", existing.ID).
			Msg("Source already registered")
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	source := &models.Source{
		CollectorID:  collectorID,
		UID:          uid,
		FriendlyName: friendlyName,
		Enabled:      true,
	}
	if err := s.repo.CreateSource(ctx, source); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("uid", uid).
		Str("friendly_name", friendlyName).
		Uint("source_id", source.ID).
		Msg("New source registered")

	return source, nil
}

// AddContentInput carries one observed item from a collector.
type AddContentInput struct {
	CollectorID uint
	SourceUID   string
	OriginTime  time.Time
	Text        string
	Metadata    models.JSON

	// ExternalUID is the origin's own key for the item (a feed item GUID).
	// Pull-based collectors set it so re-observed items are not re-ingested;
	// push-based collectors leave it empty.
	ExternalUID string
}

// AddContent stores one item and enqueues a translate task for it. Content
// with empty or whitespace-only text is rejected before anything is stored.
// An item whose ExternalUID is already known returns the existing content id
// without storing or enqueueing anything.
func (s *Service) AddContent(ctx context.Context, in AddContentInput) (uint, error) {
	if strings.TrimSpace(in.Text) == "" {
		return 0, ErrEmptyText
	}

	source, err := s.repo.GetSourceByUID(ctx, in.CollectorID, in.SourceUID)
	if err != nil {
		return 0, err
	}

	if in.ExternalUID != "" {
		existing, err := s.repo.GetContentByExternalUID(ctx, source.ID, in.ExternalUID)
		if err == nil {
			return existing.ID, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return 0, err
		}
	}

	content := &models.Content{
		SourceID:     source.ID,
		ExternalUID:  in.ExternalUID,
		OriginTime:   in.OriginTime,
		OriginalText: in.Text,
		Metadata:     in.Metadata,
	}
	if err := s.repo.CreateContent(ctx, content); err != nil {
		return 0, err
	}

	s.log.Info().
		Uint("source_id", source.ID).
		Uint("content_id", content.ID).
		Int("text_length", len(in.Text)).
		Msg("New content stored")

	if err := s.dispatcher.EnqueueTranslation(ctx, content.ID); err != nil {
		// The row is durable; redelivery is the operator's call. Surface the
		// enqueue failure rather than pretending the item is in flight.
		return content.ID, err
	}

	return content.ID, nil
}
