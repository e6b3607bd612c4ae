package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/channelwatch/internal/ai"
	"github.com/channelwatch/internal/models"
	"github.com/channelwatch/internal/provider"
	"github.com/channelwatch/pkg/logger"
)

// AnthropicID is the registry identifier of the Claude-backed analyst.
const AnthropicID = "anthropic"

// Anthropic runs analysis requirements through the Claude API
type Anthropic struct {
	client *ai.Client
	log    *logger.Logger
}

// NewAnthropic creates a Claude-backed analysis provider
func NewAnthropic(client *ai.Client, log *logger.Logger) *Anthropic {
	return &Anthropic{
		client: client,
		log:    log.WithComponent("analysis.anthropic"),
	}
}

// ID returns the registry identifier
func (a *Anthropic) ID() string {
	return AnthropicID
}

type analysisRequest struct {
	Requirement string `json:"requirement"`
	Text        string `json:"text"`
}

type analysisResponse struct {
	Analysis models.JSON `json:"analysis"`
}

// Analyse asks Claude to execute the requirement prompt against the text.
// Whatever the requirement asks for, the reply arrives inside a fixed JSON
// envelope so the stage can always parse it the same way.
func (a *Anthropic) Analyse(ctx context.Context, prompt, text string) (models.JSON, error) {
	request, err := json.Marshal(analysisRequest{
		Requirement: prompt,
		Text:        text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	response, err := a.client.CompleteWithJSON(ctx, ai.AnalysisSystemPrompt, string(request))
	if err != nil {
		return nil, err
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(ai.StripMarkdownCodeBlock(response)), &parsed); err != nil {
		a.log.Error().
			Err(err).
			Str("response", response).
			Msg("Failed to parse analysis response")
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformedResponse, err)
	}
	if parsed.Analysis == nil {
		a.log.Error().
			Str("response", response).
			Msg("Analysis response missing analysis field")
		return nil, fmt.Errorf("%w: missing analysis object", provider.ErrMalformedResponse)
	}

	return parsed.Analysis, nil
}
