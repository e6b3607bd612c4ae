package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/channelwatch/internal/models"
	"github.com/channelwatch/internal/provider"
	"github.com/channelwatch/internal/provider/analysis"
	"github.com/channelwatch/internal/storage"
	"github.com/channelwatch/pkg/logger"
)

// Analyzer is the analysis stage. It consumes a content identifier, fans out
// over the enabled analysis requirements of the owning source and persists
// one result per requirement.
type Analyzer struct {
	repo              storage.Repository
	analysts          *provider.Registry[analysis.Provider]
	defaultProviderID string
	log               *logger.Logger
}

// NewAnalyzer creates the analysis stage
func NewAnalyzer(
	repo storage.Repository,
	analysts *provider.Registry[analysis.Provider],
	defaultProviderID string,
	log *logger.Logger,
) *Analyzer {
	return &Analyzer{
		repo:              repo,
		analysts:          analysts,
		defaultProviderID: defaultProviderID,
		log:               log.WithComponent("analyzer"),
	}
}

// Process analyses one content item. A disabled source is an explicit
// successful skip. A provider failure on any requirement aborts the remaining
// ones; redelivery restarts from the top, and already-completed requirements
// upsert idempotently.
func (a *Analyzer) Process(ctx context.Context, contentID uint) error {
	log := a.log.WithContentID(contentID)

	content, err := a.repo.GetContentByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &StageError{Kind: KindNotFound, Stage: "analysis", ContentID: contentID, Err: err}
		}
		return &StageError{Kind: KindStorageFailure, Stage: "analysis", ContentID: contentID, Err: err}
	}

	if !content.Translated || content.TranslatedText == "" {
		return &StageError{
			Kind: KindValidation, Stage: "analysis", ContentID: contentID,
			Err: errors.New("content has not been translated yet"),
		}
	}

	source, err := a.repo.GetSourceByID(ctx, content.SourceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &StageError{Kind: KindNotFound, Stage: "analysis", ContentID: contentID, Err: err}
		}
		return &StageError{Kind: KindStorageFailure, Stage: "analysis", ContentID: contentID, Err: err}
	}

	if !source.Enabled {
		log.Info().Uint("source_id", source.ID).Msg("Source disabled, skipping analysis")
		return nil
	}

	requirements, err := a.repo.ListEnabledRequirements(ctx, source.ID)
	if err != nil {
		return &StageError{Kind: KindStorageFailure, Stage: "analysis", ContentID: contentID, Err: err}
	}

	log.Info().
		Uint("source_id", source.ID).
		Int("requirements", len(requirements)).
		Msg("Starting analysis")

	for _, req := range requirements {
		if err := a.processRequirement(ctx, content, req); err != nil {
			return err
		}
	}

	if err := a.repo.MarkAnalysed(ctx, contentID); err != nil {
		return &StageError{Kind: KindStorageFailure, Stage: "analysis", ContentID: contentID, Err: err}
	}

	return nil
}

// processRequirement runs a single requirement, resolving the analysis
// provider by the requirement's llm_id (falling back to the configured
// default) and persisting one upserted result row.
func (a *Analyzer) processRequirement(ctx context.Context, content *models.Content, req *models.AnalysisRequirement) error {
	log := a.log.WithContentID(content.ID)

	if req.Prompt == "" {
		return &StageError{
			Kind: KindValidation, Stage: "analysis", ContentID: content.ID,
			Err: errors.New("requirement has empty prompt"),
		}
	}

	providerID := req.LLMID
	if providerID == "" {
		providerID = a.defaultProviderID
	}

	analyst, err := a.analysts.Resolve(providerID)
	if err != nil {
		return &StageError{Kind: KindProviderUnavailable, Stage: "analysis", ContentID: content.ID, Err: err}
	}

	log.Debug().
		Uint("req_id", req.ID).
		Str("requirement", req.Name).
		Str("provider", providerID).
		Msg("Processing requirement")

	start := time.Now()
	output, err := analyst.Analyse(ctx, req.Prompt, content.TranslatedText)
	if err != nil {
		kind := KindProviderFailure
		if errors.Is(err, provider.ErrMalformedResponse) {
			kind = KindMalformedResponse
		}
		return &StageError{Kind: kind, Stage: "analysis", ContentID: content.ID, Err: err}
	}

	result := &models.AnalysisResult{
		ReqID:        req.ID,
		ContentID:    content.ID,
		AnalysisTime: time.Now().UTC(),
		Output:       output,
	}
	if err := a.repo.SaveResult(ctx, result); err != nil {
		return &StageError{Kind: KindStorageFailure, Stage: "analysis", ContentID: content.ID, Err: err}
	}

	log.Info().
		Uint("req_id", req.ID).
		Str("requirement", req.Name).
		Dur("duration", time.Since(start)).
		Msg("Stored analysis result")

	return nil
}
