package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/channelwatch/internal/provider"
	"github.com/channelwatch/pkg/logger"
	"github.com/channelwatch/pkg/ratelimit"
)

// DeepLID is the registry identifier of the DeepL translator.
const DeepLID = "deepl"

// DefaultDeepLURL is the free-tier endpoint; paid accounts use api.deepl.com.
const DefaultDeepLURL = "https://api-free.deepl.com"

// DeepL translates text through the DeepL REST v2 API
type DeepL struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewDeepL creates a DeepL translation provider
func NewDeepL(apiKey, baseURL string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *DeepL {
	if baseURL == "" {
		baseURL = DefaultDeepLURL
	}
	return &DeepL{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		log:         log.WithComponent("translation.deepl"),
	}
}

// ID returns the registry identifier
func (d *DeepL) ID() string {
	return DeepLID
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate calls POST /v2/translate with a target language of English
func (d *DeepL) Translate(ctx context.Context, text string) (string, error) {
	if err := d.rateLimiter.Wait(ctx, ratelimit.LimiterDeepL); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", "EN")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read deepl response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		d.log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("DeepL API error")
		return "", fmt.Errorf("deepl API returned status %d", resp.StatusCode)
	}

	var parsed deeplResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		d.log.Error().
			Err(err).
			Str("body", string(body)).
			Msg("Failed to parse DeepL response")
		return "", fmt.Errorf("%w: %v", provider.ErrMalformedResponse, err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("%w: no translations in reply", provider.ErrMalformedResponse)
	}

	d.log.Debug().
		Str("detected_language", parsed.Translations[0].DetectedSourceLanguage).
		Msg("Translation complete")

	return parsed.Translations[0].Text, nil
}
