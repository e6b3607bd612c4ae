// Package analysis defines the analyse capability and its built-in providers.
package analysis

import (
	"context"

	"github.com/channelwatch/internal/models"
)

// Provider runs one analysis requirement against a piece of text and returns
// the structured result to persist.
type Provider interface {
	// ID returns the identifier the provider is registered under
	ID() string

	// Analyse executes the requirement's prompt against the text
	Analyse(ctx context.Context, prompt, text string) (models.JSON, error)
}
