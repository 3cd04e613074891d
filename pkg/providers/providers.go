// Package providers selects and constructs the completion engine from
// configuration.
package providers

import (
	"errors"

	"github.com/tinyland-inc/hookclaw/pkg/config"
	anthropicprovider "github.com/tinyland-inc/hookclaw/pkg/providers/anthropic"
	openaiprovider "github.com/tinyland-inc/hookclaw/pkg/providers/openai"
	"github.com/tinyland-inc/hookclaw/pkg/providers/protocoltypes"
)

// ErrNotConfigured is returned when no provider has credentials. Callers
// degrade to a fixed "not configured" reply instead of failing requests.
var ErrNotConfigured = errors.New("no completion provider configured")

// CreateEngine returns the configured engine and the model to use with it.
// Anthropic wins when both providers carry keys.
func CreateEngine(cfg *config.Config) (protocoltypes.Engine, string, error) {
	model := cfg.Responder.Model

	if key := cfg.Providers.Anthropic.APIKey; key != "" {
		return anthropicprovider.NewProviderWithBaseURL(key, cfg.Providers.Anthropic.APIBase), model, nil
	}
	if key := cfg.Providers.OpenAI.APIKey; key != "" {
		if model == "" || model == "claude-sonnet-4.6" {
			model = "gpt-4o"
		}
		return openaiprovider.NewProvider(key, cfg.Providers.OpenAI.APIBase), model, nil
	}

	return nil, "", ErrNotConfigured
}
