package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"datachat/config"
)

// BuildChatModel constructs the planner chat model for the configured
// provider. "Anthropic" uses the native messages adapter; everything else
// goes through the eino OpenAI client, which also covers OpenRouter and
// other OpenAI-compatible endpoints.
func BuildChatModel(ctx context.Context, cfg config.Config, log func(string)) (model.ChatModel, error) {
	temperature := float32(cfg.Temperature)
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.LLMProvider {
	case "Anthropic":
		chatModel, err := NewAnthropicChatModel(ctx, &AnthropicConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.ModelName,
			Temperature: &temperature,
			Timeout:     timeout,
			HTTPClient:  NewProxyHTTPClient(timeout, cfg.Proxy),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic chat model: %v", err)
		}
		return chatModel, nil
	default:
		inner, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.ModelName,
			Timeout:     timeout,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %v", err)
		}
		return NewCompatibleWrapper(inner, cfg.BaseURL, log), nil
	}
}
