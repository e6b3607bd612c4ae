package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/channelwatch/internal/provider"
	"github.com/channelwatch/internal/provider/translation"
	"github.com/channelwatch/internal/storage"
	"github.com/channelwatch/pkg/logger"
)

// AnalysisDispatcher is the slice of the task bus the translator needs: it
// hands translated content over to the analysis stage.
type AnalysisDispatcher interface {
	EnqueueAnalysis(ctx context.Context, contentID uint) error
}

// Translator is the translation stage. It consumes a content identifier,
// fetches the original text, invokes the configured translation provider,
// persists the result and hands the content to the analysis stage.
type Translator struct {
	repo        storage.Repository
	translators *provider.Registry[translation.Provider]
	providerID  string
	dispatcher  AnalysisDispatcher
	log         *logger.Logger
}

// NewTranslator creates the translation stage
func NewTranslator(
	repo storage.Repository,
	translators *provider.Registry[translation.Provider],
	providerID string,
	dispatcher AnalysisDispatcher,
	log *logger.Logger,
) *Translator {
	return &Translator{
		repo:        repo,
		translators: translators,
		providerID:  providerID,
		dispatcher:  dispatcher,
		log:         log.WithComponent("translator"),
	}
}

// Process translates one content item. Nothing is persisted unless the
// provider call succeeds; the analyse task is emitted only after the
// translation update has committed.
func (t *Translator) Process(ctx context.Context, contentID uint) error {
	log := t.log.WithContentID(contentID)

	content, err := t.repo.GetContentByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &StageError{Kind: KindNotFound, Stage: "translation", ContentID: contentID, Err: err}
		}
		return &StageError{Kind: KindStorageFailure, Stage: "translation", ContentID: contentID, Err: err}
	}

	// Redelivered task for content that already made it through: skip the
	// provider call and just make sure the analyse task exists. Duplicate
	// analyse tasks are harmless because results upsert per requirement.
	if content.Translated {
		log.Info().Msg("Content already translated, re-emitting analyse task")
		if err := t.dispatcher.EnqueueAnalysis(ctx, contentID); err != nil {
			return &StageError{Kind: KindStorageFailure, Stage: "translation", ContentID: contentID, Err: err}
		}
		return nil
	}

	if strings.TrimSpace(content.OriginalText) == "" {
		return &StageError{
			Kind: KindValidation, Stage: "translation", ContentID: contentID,
			Err: errors.New("content has empty original text"),
		}
	}

	translator, err := t.translators.Resolve(t.providerID)
	if err != nil {
		return &StageError{Kind: KindProviderUnavailable, Stage: "translation", ContentID: contentID, Err: err}
	}

	start := time.Now()
	translatedText, err := translator.Translate(ctx, content.OriginalText)
	if err != nil {
		kind := KindProviderFailure
		if errors.Is(err, provider.ErrMalformedResponse) {
			kind = KindMalformedResponse
		}
		return &StageError{Kind: kind, Stage: "translation", ContentID: contentID, Err: err}
	}

	log.Info().
		Str("provider", t.providerID).
		Dur("duration", time.Since(start)).
		Msg("Translation complete")

	if err := t.repo.MarkTranslated(ctx, contentID, translatedText); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &StageError{Kind: KindNotFound, Stage: "translation", ContentID: contentID, Err: err}
		}
		return &StageError{Kind: KindStorageFailure, Stage: "translation", ContentID: contentID, Err: err}
	}

	// The update above has committed; at-least-once from here on.
	if err := t.dispatcher.EnqueueAnalysis(ctx, contentID); err != nil {
		return &StageError{Kind: KindStorageFailure, Stage: "translation", ContentID: contentID, Err: err}
	}

	return nil
}
