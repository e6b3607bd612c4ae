// Package translation defines the translate capability and its built-in
// providers.
package translation

import "context"

// Provider translates text into the pipeline's working language (English).
type Provider interface {
	// ID returns the identifier the provider is registered under
	ID() string

	// Translate returns the translated text. It must not partially succeed:
	// on any error the input is considered untranslated.
	Translate(ctx context.Context, text string) (string, error)
}
