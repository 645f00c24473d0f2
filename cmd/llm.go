package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/cr/internal/llm"
)

// newBackend creates the review backend from config/env. The viper key picks
// up CR_ANTHROPIC_API_KEY through the env binding; the bare ANTHROPIC_API_KEY
// variable works as a fallback.
func newBackend(model string) (llm.Backend, error) {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.ErrMissingAPIKey
	}

	apiModel, err := llm.ParseModel(model)
	if err != nil {
		return nil, err
	}

	return llm.NewClient(apiKey, apiModel, viper.GetInt64("review.max_tokens"), viper.GetFloat64("review.temperature")), nil
}
