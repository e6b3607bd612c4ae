package translation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelwatch/internal/provider"
	"github.com/channelwatch/pkg/logger"
	"github.com/channelwatch/pkg/ratelimit"
)

func deeplTestLimiter() *ratelimit.MultiLimiter {
	m := ratelimit.NewMultiLimiter()
	m.AddLimiter(ratelimit.LimiterDeepL, 1000, 1000)
	return m
}

func deeplTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled"})
}

func TestDeepLTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/translate", r.URL.Path)
		assert.Equal(t, "DeepL-Auth-Key test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Bonjour le monde", r.PostForm.Get("text"))
		assert.Equal(t, "EN", r.PostForm.Get("target_lang"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translations":[{"detected_source_language":"FR","text":"Hello world"}]}`))
	}))
	defer server.Close()

	d := NewDeepL("test-key", server.URL, deeplTestLimiter(), deeplTestLogger())

	translated, err := d.Translate(context.Background(), "Bonjour le monde")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", translated)
}

func TestDeepLTranslateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"invalid auth key"}`))
	}))
	defer server.Close()

	d := NewDeepL("bad-key", server.URL, deeplTestLimiter(), deeplTestLogger())

	_, err := d.Translate(context.Background(), "Bonjour le monde")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.False(t, errors.Is(err, provider.ErrMalformedResponse))
}

func TestDeepLTranslateMalformedReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	d := NewDeepL("test-key", server.URL, deeplTestLimiter(), deeplTestLogger())

	_, err := d.Translate(context.Background(), "Bonjour le monde")
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrMalformedResponse))
}

func TestDeepLTranslateEmptyTranslations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translations":[]}`))
	}))
	defer server.Close()

	d := NewDeepL("test-key", server.URL, deeplTestLimiter(), deeplTestLogger())

	_, err := d.Translate(context.Background(), "Bonjour le monde")
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrMalformedResponse))
}
