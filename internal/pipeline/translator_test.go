package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelwatch/internal/models"
	"github.com/channelwatch/internal/provider"
	"github.com/channelwatch/internal/provider/analysis"
	"github.com/channelwatch/internal/provider/translation"
	"github.com/channelwatch/internal/storage"
	"github.com/channelwatch/internal/storage/sqlite"
	"github.com/channelwatch/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled"})
}

func newTestRepo(t *testing.T) storage.Repository {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })

	return repo
}

// stubTranslator returns a fixed translation or error
type stubTranslator struct {
	id     string
	result string
	err    error
	calls  int
}

func (s *stubTranslator) ID() string { return s.id }

func (s *stubTranslator) Translate(ctx context.Context, text string) (string, error) {
	s.calls++
	return s.result, s.err
}

// stubAnalyst returns a fixed output or error
type stubAnalyst struct {
	id     string
	output models.JSON
	err    error
	calls  int
}

func (s *stubAnalyst) ID() string { return s.id }

func (s *stubAnalyst) Analyse(ctx context.Context, prompt, text string) (models.JSON, error) {
	s.calls++
	return s.output, s.err
}

// recordingDispatcher captures enqueued analyse tasks
type recordingDispatcher struct {
	analysed []uint
	err      error
}

func (d *recordingDispatcher) EnqueueAnalysis(ctx context.Context, contentID uint) error {
	if d.err != nil {
		return d.err
	}
	d.analysed = append(d.analysed, contentID)
	return nil
}

func translatorRegistry(p translation.Provider) *provider.Registry[translation.Provider] {
	registry := provider.NewRegistry[translation.Provider]()
	if p != nil {
		registry.Register(p.ID(), func() (translation.Provider, error) {
			return p, nil
		})
	}
	return registry
}

func analystRegistry(providers ...analysis.Provider) *provider.Registry[analysis.Provider] {
	registry := provider.NewRegistry[analysis.Provider]()
	for _, p := range providers {
		p := p
		registry.Register(p.ID(), func() (analysis.Provider, error) {
			return p, nil
		})
	}
	return registry
}

func seedContent(t *testing.T, repo storage.Repository, text string) *models.Content {
	t.Helper()
	ctx := context.Background()

	collector, err := repo.EnsureCollector(ctx, "feeds", "Web Feed Monitor")
	require.NoError(t, err)

	source := &models.Source{
		CollectorID: collector.ID,
		UID:         "feed-1",
		Enabled:     true,
	}
	require.NoError(t, repo.CreateSource(ctx, source))

	content := &models.Content{
		SourceID:     source.ID,
		OriginTime:   time.Now().UTC(),
		OriginalText: text,
	}
	require.NoError(t, repo.CreateContent(ctx, content))
	return content
}

func TestTranslatorProcess(t *testing.T) {
	repo := newTestRepo(t)
	content := seedContent(t, repo, "Bonjour le monde")

	stub := &stubTranslator{id: "stub", result: "Hello world"}
	dispatcher := &recordingDispatcher{}
	translator := NewTranslator(repo, translatorRegistry(stub), "stub", dispatcher, testLogger())

	err := translator.Process(context.Background(), content.ID)
	require.NoError(t, err)

	stored, err := repo.GetContentByID(context.Background(), content.ID)
	require.NoError(t, err)
	assert.True(t, stored.Translated)
	assert.Equal(t, "Hello world", stored.TranslatedText)
	assert.Equal(t, "Bonjour le monde", stored.OriginalText)
	assert.Equal(t, []uint{content.ID}, dispatcher.analysed)
}

func TestTranslatorMissingContent(t *testing.T) {
	repo := newTestRepo(t)

	stub := &stubTranslator{id: "stub", result: "Hello world"}
	translator := NewTranslator(repo, translatorRegistry(stub), "stub", &recordingDispatcher{}, testLogger())

	err := translator.Process(context.Background(), 42)
	stageErr, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, stageErr.Kind)
	assert.True(t, stageErr.Retryable())
	assert.Zero(t, stub.calls)
}

func TestTranslatorProviderUnavailable(t *testing.T) {
	repo := newTestRepo(t)
	content := seedContent(t, repo, "Bonjour le monde")

	translator := NewTranslator(repo, translatorRegistry(nil), "stub", &recordingDispatcher{}, testLogger())

	err := translator.Process(context.Background(), content.ID)
	stageErr, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindProviderUnavailable, stageErr.Kind)
	assert.False(t, stageErr.Retryable())
	assert.ErrorIs(t, err, provider.ErrNotRegistered)
}

func TestTranslatorProviderFailureLeavesContentUntouched(t *testing.T) {
	repo := newTestRepo(t)
	content := seedContent(t, repo, "Bonjour le monde")

	stub := &stubTranslator{id: "stub", err: errors.New("upstream timeout")}
	dispatcher := &recordingDispatcher{}
	translator := NewTranslator(repo, translatorRegistry(stub), "stub", dispatcher, testLogger())

	err := translator.Process(context.Background(), content.ID)
	stageErr, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindProviderFailure, stageErr.Kind)
	assert.True(t, stageErr.Retryable())

	stored, err := repo.GetContentByID(context.Background(), content.ID)
	require.NoError(t, err)
	assert.False(t, stored.Translated)
	assert.Empty(t, stored.TranslatedText)
	assert.Empty(t, dispatcher.analysed)
}

func TestTranslatorMalformedResponse(t *testing.T) {
	repo := newTestRepo(t)
	content := seedContent(t, repo, "Bonjour le monde")

	stub := &stubTranslator{
		id:  "stub",
		err: provider.ErrMalformedResponse,
	}
	translator := NewTranslator(repo, translatorRegistry(stub), "stub", &recordingDispatcher{}, testLogger())

	err := translator.Process(context.Background(), content.ID)
	stageErr, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformedResponse, stageErr.Kind)
	assert.True(t, stageErr.Retryable())
}

func TestTranslatorEmptyTextIsValidationError(t *testing.T) {
	repo := newTestRepo(t)
	content := seedContent(t, repo, "   \n\t ")

	stub := &stubTranslator{id: "stub", result: "anything"}
	translator := NewTranslator(repo, translatorRegistry(stub), "stub", &recordingDispatcher{}, testLogger())

	err := translator.Process(context.Background(), content.ID)
	stageErr, ok := AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, stageErr.Kind)
	assert.False(t, stageErr.Retryable())
	assert.Zero(t, stub.calls)
}

func TestTranslatorRedeliverySkipsProvider(t *testing.T) {
	repo := newTestRepo(t)
	content := seedContent(t, repo, "Bonjour le monde")
	require.NoError(t, repo.MarkTranslated(context.Background(), content.ID, "Hello world"))

	stub := &stubTranslator{id: "stub", result: "should not be used"}
	dispatcher := &recordingDispatcher{}
	translator := NewTranslator(repo, translatorRegistry(stub), "stub", dispatcher, testLogger())

	err := translator.Process(context.Background(), content.ID)
	require.NoError(t, err)

	assert.Zero(t, stub.calls)
	assert.Equal(t, []uint{content.ID}, dispatcher.analysed)

	stored, err := repo.GetContentByID(context.Background(), content.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", stored.TranslatedText)
}
