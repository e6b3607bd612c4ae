package translation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/channelwatch/internal/ai"
	"github.com/channelwatch/internal/provider"
	"github.com/channelwatch/pkg/logger"
)

// AnthropicID is the registry identifier of the Claude-backed translator.
const AnthropicID = "anthropic"

// Anthropic translates text through the Claude API
type Anthropic struct {
	client *ai.Client
	log    *logger.Logger
}

// NewAnthropic creates a Claude-backed translation provider
func NewAnthropic(client *ai.Client, log *logger.Logger) *Anthropic {
	return &Anthropic{
		client: client,
		log:    log.WithComponent("translation.anthropic"),
	}
}

// ID returns the registry identifier
func (a *Anthropic) ID() string {
	return AnthropicID
}

type translationRequest struct {
	TranslateTo string `json:"translate_to"`
	Message     string `json:"message"`
}

type translationResponse struct {
	Translation      string `json:"translation"`
	DetectedLanguage string `json:"detected_language"`
}

// Translate asks Claude for an English rendition of the text
func (a *Anthropic) Translate(ctx context.Context, text string) (string, error) {
	request, err := json.Marshal(translationRequest{
		TranslateTo: "English",
		Message:     text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal translation request: %w", err)
	}

	response, err := a.client.CompleteWithJSON(ctx, ai.TranslationSystemPrompt, string(request))
	if err != nil {
		return "", err
	}

	var parsed translationResponse
	if err := json.Unmarshal([]byte(ai.StripMarkdownCodeBlock(response)), &parsed); err != nil {
		a.log.Error().
			Err(err).
			Str("response", response).
			Msg("Failed to parse translation response")
		return "", fmt.Errorf("%w: %v", provider.ErrMalformedResponse, err)
	}
	if parsed.Translation == "" {
		a.log.Error().
			Str("response", response).
			Msg("Translation response missing translation field")
		return "", fmt.Errorf("%w: empty translation", provider.ErrMalformedResponse)
	}

	a.log.Debug().
		Str("detected_language", parsed.DetectedLanguage).
		Msg("Translation complete")

	return parsed.Translation, nil
}
