package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelwatch/internal/models"
	"github.com/channelwatch/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })

	return repo
}

// seedSource creates a collector and one source under it
func seedSource(t *testing.T, repo *Repository) *models.Source {
	t.Helper()
	ctx := context.Background()

	collector, err := repo.EnsureCollector(ctx, "feeds", "Web Feed Monitor")
	require.NoError(t, err)

	source := &models.Source{
		CollectorID:  collector.ID,
		UID:          "https://example.com/feed.xml",
		FriendlyName: "Example Feed",
		Enabled:      true,
	}
	require.NoError(t, repo.CreateSource(ctx, source))
	return source
}

func seedContent(t *testing.T, repo *Repository, sourceID uint, text string) *models.Content {
	t.Helper()

	content := &models.Content{
		SourceID:     sourceID,
		OriginTime:   time.Now().UTC(),
		OriginalText: text,
	}
	require.NoError(t, repo.CreateContent(context.Background(), content))
	return content
}

func TestEnsureCollectorIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.EnsureCollector(ctx, "feeds", "Web Feed Monitor")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := repo.EnsureCollector(ctx, "feeds", "Different Long Name")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Web Feed Monitor", second.LongName)

	collectors, err := repo.ListCollectors(ctx)
	require.NoError(t, err)
	assert.Len(t, collectors, 1)
}

func TestGetCollectorByShortNameNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetCollectorByShortName(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSourceLookupByUID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := seedSource(t, repo)

	found, err := repo.GetSourceByUID(ctx, source.CollectorID, source.UID)
	require.NoError(t, err)
	assert.Equal(t, source.ID, found.ID)

	// Same UID under a different collector is a different source.
	_, err = repo.GetSourceByUID(ctx, source.CollectorID+1, source.UID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetSourceEnabled(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := seedSource(t, repo)

	require.NoError(t, repo.SetSourceEnabled(ctx, source.ID, false))

	found, err := repo.GetSourceByID(ctx, source.ID)
	require.NoError(t, err)
	assert.False(t, found.Enabled)

	err = repo.SetSourceEnabled(ctx, source.ID+100, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestContentLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := seedSource(t, repo)
	content := seedContent(t, repo, source.ID, "Bonjour le monde")

	found, err := repo.GetContentByID(ctx, content.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour le monde", found.OriginalText)
	assert.False(t, found.Translated)
	assert.False(t, found.Analysed)

	require.NoError(t, repo.MarkTranslated(ctx, content.ID, "Hello world"))
	require.NoError(t, repo.MarkAnalysed(ctx, content.ID))

	found, err = repo.GetContentByID(ctx, content.ID)
	require.NoError(t, err)
	assert.True(t, found.Translated)
	assert.Equal(t, "Hello world", found.TranslatedText)
	assert.True(t, found.Analysed)
	assert.Equal(t, "Bonjour le monde", found.OriginalText)
}

func TestMarkTranslatedMissingContent(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.MarkTranslated(context.Background(), 42, "Hello world")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetContentByExternalUID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := seedSource(t, repo)

	content := &models.Content{
		SourceID:     source.ID,
		ExternalUID:  "guid-123",
		OriginTime:   time.Now().UTC(),
		OriginalText: "some item",
	}
	require.NoError(t, repo.CreateContent(ctx, content))

	found, err := repo.GetContentByExternalUID(ctx, source.ID, "guid-123")
	require.NoError(t, err)
	assert.Equal(t, content.ID, found.ID)

	_, err = repo.GetContentByExternalUID(ctx, source.ID, "guid-999")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListContentFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := seedSource(t, repo)

	done := seedContent(t, repo, source.ID, "done")
	require.NoError(t, repo.MarkTranslated(ctx, done.ID, "done"))
	require.NoError(t, repo.MarkAnalysed(ctx, done.ID))
	pending := seedContent(t, repo, source.ID, "pending")

	analysed := false
	filter := storage.DefaultContentFilter()
	filter.SourceID = &source.ID
	filter.Analysed = &analysed

	items, err := repo.ListContent(ctx, filter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, pending.ID, items[0].ID)
}

func TestListEnabledRequirements(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := seedSource(t, repo)

	enabled := &models.AnalysisRequirement{
		SourceID: source.ID,
		Name:     "sentiment",
		Prompt:   "Classify the sentiment",
		Enabled:  true,
	}
	disabled := &models.AnalysisRequirement{
		SourceID: source.ID,
		Name:     "topics",
		Prompt:   "Extract topics",
		Enabled:  false,
	}
	require.NoError(t, repo.CreateRequirement(ctx, enabled))
	require.NoError(t, repo.CreateRequirement(ctx, disabled))

	all, err := repo.ListRequirements(ctx, source.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.ListEnabledRequirements(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, enabled.ID, active[0].ID)

	// Requirements of other sources never leak in.
	none, err := repo.ListEnabledRequirements(ctx, source.ID+100)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveResultUpserts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := seedSource(t, repo)
	content := seedContent(t, repo, source.ID, "text")

	req := &models.AnalysisRequirement{
		SourceID: source.ID,
		Name:     "sentiment",
		Prompt:   "Classify the sentiment",
		Enabled:  true,
	}
	require.NoError(t, repo.CreateRequirement(ctx, req))

	first := &models.AnalysisResult{
		ReqID:        req.ID,
		ContentID:    content.ID,
		AnalysisTime: time.Now().UTC(),
		Output:       models.JSON{"sentiment": "positive"},
	}
	require.NoError(t, repo.SaveResult(ctx, first))

	// Redelivered task produces a second save for the same pair.
	second := &models.AnalysisResult{
		ReqID:        req.ID,
		ContentID:    content.ID,
		AnalysisTime: time.Now().UTC(),
		Output:       models.JSON{"sentiment": "neutral"},
	}
	require.NoError(t, repo.SaveResult(ctx, second))

	results, err := repo.ListResultsByContent(ctx, content.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "neutral", results[0].Output["sentiment"])
}

func TestResultsPerRequirementAreDistinct(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	source := seedSource(t, repo)
	content := seedContent(t, repo, source.ID, "text")

	for _, name := range []string{"sentiment", "topics"} {
		req := &models.AnalysisRequirement{
			SourceID: source.ID,
			Name:     name,
			Prompt:   "Analyse " + name,
			Enabled:  true,
		}
		require.NoError(t, repo.CreateRequirement(ctx, req))
		require.NoError(t, repo.SaveResult(ctx, &models.AnalysisResult{
			ReqID:        req.ID,
			ContentID:    content.ID,
			AnalysisTime: time.Now().UTC(),
			Output:       models.JSON{"name": name},
		}))
	}

	results, err := repo.ListResultsByContent(ctx, content.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
