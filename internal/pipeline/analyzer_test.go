package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelwatch/internal/models"
	"github.com/channelwatch/internal/storage"
)

func seedTranslatedContent(t *testing.T, repo storage.Repository) *models.Content {
	t.Helper()

	content := seedContent(t, repo, "Bonjour le monde")
	require.NoError(t, repo.MarkTranslated(context.Background(), content.ID, "Hello world"))
	content.Translated = true
	content.TranslatedText = "Hello world"
	return content
}

func addRequirement(t *testing.T, repo storage.Repository, sourceID uint, name, llmID string) *models.AnalysisRequirement {
	t.Helper()

	req := &models.AnalysisRequirement{
		SourceID: sourceID,
		LLMID:    llmID,
		Name:     name,
		Prompt:   "Analyse " + name,
		Enabled:  true,
	}
	require.NoError(t, repo.CreateRequirement(context.Background(), req))
	return req
}

func TestAnalyzerProcess(t *testing.T) {
	repo := newTestRepo(t)
	content := seedTranslatedContent(t, repo)
	addRequirement(t, repo, content.SourceID, "sentiment", "")
	addRequirement(t, repo, content.SourceID, "topics", "")

	stub := &stubAnalyst{id: "stub", output: models.JSON{"sentiment": "neutral"}}
	analyzer := NewAnalyzer(repo, analystRegistry(stub), "stub", testLogger())

	err := analyzer.Process(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls)

	results, err := repo.ListResultsByContent(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	stored, err := repo.GetContentByID(context.Background(), content.ID)
	require.NoError(t, err)
	assert.True(t, stored.Analysed)
}

func TestAnalyzerUntranslatedContent(t *testing.T) {
	repo := newTestRepo(t)
	content := seedContent(t, repo, "Bonjour le monde")

	stub := &stubAnalyst{id: "stub", output: models.JSON{}}
	analyzer := NewAnalyzer(repo, analystRegistry(stub), "stub", testLogger())

	err := analyzer.Process(context.Background(), content.ID)
	stageErr, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, stageErr.Kind)
	assert.Zero(t, stub.calls)
}

func TestAnalyzerDisabledSourceSkips(t *testing.T) {
	repo := newTestRepo(t)
	content := seedTranslatedContent(t, repo)
	addRequirement(t, repo, content.SourceID, "sentiment", "")
	require.NoError(t, repo.SetSourceEnabled(context.Background(), content.SourceID, false))

	stub := &stubAnalyst{id: "stub", output: models.JSON{}}
	analyzer := NewAnalyzer(repo, analystRegistry(stub), "stub", testLogger())

	// A disabled source is a successful skip, not a failure.
	err := analyzer.Process(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Zero(t, stub.calls)

	results, err := repo.ListResultsByContent(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Empty(t, results)

	stored, err := repo.GetContentByID(context.Background(), content.ID)
	require.NoError(t, err)
	assert.False(t, stored.Analysed)
}

func TestAnalyzerZeroRequirements(t *testing.T) {
	repo := newTestRepo(t)
	content := seedTranslatedContent(t, repo)

	analyzer := NewAnalyzer(repo, analystRegistry(), "stub", testLogger())

	err := analyzer.Process(context.Background(), content.ID)
	require.NoError(t, err)

	stored, err := repo.GetContentByID(context.Background(), content.ID)
	require.NoError(t, err)
	assert.True(t, stored.Analysed)
}

func TestAnalyzerSelectsProviderPerRequirement(t *testing.T) {
	repo := newTestRepo(t)
	content := seedTranslatedContent(t, repo)
	addRequirement(t, repo, content.SourceID, "default-provider", "")
	addRequirement(t, repo, content.SourceID, "special-provider", "special")

	defaultStub := &stubAnalyst{id: "default", output: models.JSON{"via": "default"}}
	specialStub := &stubAnalyst{id: "special", output: models.JSON{"via": "special"}}
	analyzer := NewAnalyzer(repo, analystRegistry(defaultStub, specialStub), "default", testLogger())

	err := analyzer.Process(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, defaultStub.calls)
	assert.Equal(t, 1, specialStub.calls)
}

func TestAnalyzerUnknownRequirementProvider(t *testing.T) {
	repo := newTestRepo(t)
	content := seedTranslatedContent(t, repo)
	addRequirement(t, repo, content.SourceID, "sentiment", "missing")

	stub := &stubAnalyst{id: "stub", output: models.JSON{}}
	analyzer := NewAnalyzer(repo, analystRegistry(stub), "stub", testLogger())

	err := analyzer.Process(context.Background(), content.ID)
	stageErr, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindProviderUnavailable, stageErr.Kind)
	assert.False(t, stageErr.Retryable())
}

func TestAnalyzerFailFastOnProviderError(t *testing.T) {
	repo := newTestRepo(t)
	content := seedTranslatedContent(t, repo)
	addRequirement(t, repo, content.SourceID, "first", "good")
	addRequirement(t, repo, content.SourceID, "second", "bad")
	addRequirement(t, repo, content.SourceID, "third", "good")

	good := &stubAnalyst{id: "good", output: models.JSON{"ok": true}}
	bad := &stubAnalyst{id: "bad", err: errors.New("upstream timeout")}
	analyzer := NewAnalyzer(repo, analystRegistry(good, bad), "good", testLogger())

	err := analyzer.Process(context.Background(), content.ID)
	stageErr, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindProviderFailure, stageErr.Kind)
	assert.True(t, stageErr.Retryable())

	// The third requirement never ran and the content is not marked analysed.
	assert.Equal(t, 1, good.calls)
	results, err := repo.ListResultsByContent(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	stored, err := repo.GetContentByID(context.Background(), content.ID)
	require.NoError(t, err)
	assert.False(t, stored.Analysed)
}

func TestAnalyzerRedeliveryUpserts(t *testing.T) {
	repo := newTestRepo(t)
	content := seedTranslatedContent(t, repo)
	addRequirement(t, repo, content.SourceID, "sentiment", "")

	stub := &stubAnalyst{id: "stub", output: models.JSON{"sentiment": "neutral"}}
	analyzer := NewAnalyzer(repo, analystRegistry(stub), "stub", testLogger())

	require.NoError(t, analyzer.Process(context.Background(), content.ID))
	require.NoError(t, analyzer.Process(context.Background(), content.ID))

	results, err := repo.ListResultsByContent(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestAnalyzerDisabledRequirementExcluded(t *testing.T) {
	repo := newTestRepo(t)
	content := seedTranslatedContent(t, repo)
	req := addRequirement(t, repo, content.SourceID, "sentiment", "")
	require.NoError(t, repo.SetRequirementEnabled(context.Background(), req.ID, false))

	stub := &stubAnalyst{id: "stub", output: models.JSON{}}
	analyzer := NewAnalyzer(repo, analystRegistry(stub), "stub", testLogger())

	err := analyzer.Process(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Zero(t, stub.calls)

	stored, err := repo.GetContentByID(context.Background(), content.ID)
	require.NoError(t, err)
	assert.True(t, stored.Analysed)
}
