// Package builtin assembles the provider registries from configuration. This
// is the one place where concrete providers meet their identifiers; nothing
// registers itself as an import side effect.
package builtin

import (
	"github.com/channelwatch/internal/ai"
	"github.com/channelwatch/internal/config"
	"github.com/channelwatch/internal/provider"
	"github.com/channelwatch/internal/provider/analysis"
	"github.com/channelwatch/internal/provider/translation"
	"github.com/channelwatch/pkg/logger"
	"github.com/channelwatch/pkg/ratelimit"
)

// Registries builds the translation and analysis registries, registering
// every provider whose credentials are present in the configuration. A
// provider left unconfigured is simply absent: resolving its identifier
// yields provider.ErrNotRegistered instead of a startup crash.
func Registries(
	cfg *config.Config,
	aiClient *ai.Client,
	limiter *ratelimit.MultiLimiter,
	log *logger.Logger,
) (*provider.Registry[translation.Provider], *provider.Registry[analysis.Provider]) {
	translators := provider.NewRegistry[translation.Provider]()
	analysts := provider.NewRegistry[analysis.Provider]()

	if cfg.Anthropic.APIKey != "" {
		translators.Register(translation.AnthropicID, func() (translation.Provider, error) {
			return translation.NewAnthropic(aiClient, log), nil
		})
		analysts.Register(analysis.AnthropicID, func() (analysis.Provider, error) {
			return analysis.NewAnthropic(aiClient, log), nil
		})
	}

	if cfg.DeepL.APIKey != "" {
		translators.Register(translation.DeepLID, func() (translation.Provider, error) {
			return translation.NewDeepL(cfg.DeepL.APIKey, cfg.DeepL.BaseURL, limiter, log), nil
		})
	}

	log.Info().
		Strs("translation_providers", translators.IDs()).
		Strs("analysis_providers", analysts.IDs()).
		Msg("Provider registries built")

	return translators, analysts
}
